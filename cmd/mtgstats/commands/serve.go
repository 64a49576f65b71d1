package commands

import (
	"context"
	"log/slog"
	"mtgstats-backend/internal/components/chrono"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/pkg/serviceutil"
	"time"

	"github.com/spf13/cobra"
)

var serveNow bool

func init() {
	serveCmd.Flags().BoolVar(&serveNow, "now", false, "Harvest the last tournaments immediately on start.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--now]",
	Short: "Runs the job workers and schedules the periodic harvests.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := readConfig()
		if err != nil {
			serviceutil.Fatal("read config", err)
		}

		otel, err := telemetry.SetupOtel(ctx, "mtgstats", cfg.Telemetry)
		if err != nil {
			serviceutil.Fatal("setup telemetry", err)
		}
		defer otel.Shutdown(context.Background())

		a, err := newApp(ctx, cfg)
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.Close()

		telemetry.InstrumentPerfStats(ctx, a.tel)
		go a.pool.ReportPending(ctx, 30*time.Second)

		cron := chrono.NewStandardCron(a.time, a.tel)
		defer cron.Stop()
		err = cron.Schedule(ctx,
			chrono.Schedule{Name: "formats", Spec: cfg.Schedules.Formats, Run: func(ctx context.Context) error {
				return a.orchestrator.HarvestFormats(ctx, false)
			}},
			chrono.Schedule{Name: "relevance", Spec: cfg.Schedules.Relevance, Run: a.orchestrator.UpdateRelevance},
			chrono.Schedule{Name: "prices", Spec: cfg.Schedules.Prices, Run: a.orchestrator.HarvestPrices},
			chrono.Schedule{Name: "sets", Spec: cfg.Schedules.Sets, Run: a.orchestrator.HarvestSets},
		)
		if err != nil {
			serviceutil.Fatal("schedule harvests", err)
		}

		if serveNow {
			err := a.orchestrator.HarvestFormats(ctx, false)
			if err != nil {
				serviceutil.Fatal("harvest formats", err)
			}
		}

		slog.Info("running workers", "count", cfg.Workers)
		a.pool.Run(ctx)
	},
}
