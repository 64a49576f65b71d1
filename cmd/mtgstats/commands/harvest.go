package commands

import (
	"context"
	"log/slog"
	"mtgstats-backend/internal/harvest"
	"mtgstats-backend/pkg/serviceutil"
	"time"

	"github.com/spf13/cobra"
)

var (
	harvestForce  bool
	harvestFormat string
	harvestPage   int
	harvestSet    string
)

func init() {
	formatsCmd.Flags().BoolVar(&harvestForce, "force", false, "Harvest again the tournaments already stored.")
	deckCmd.Flags().StringVar(&harvestFormat, "format", "", "The format code used when the export does not name one.")
	cardsCmd.Flags().IntVar(&harvestPage, "page", 1, "The page of the card listing to start from.")
	cardsCmd.Flags().StringVar(&harvestSet, "set", "", "Harvest every card of this set instead of the listing.")

	harvestCmd.AddCommand(formatsCmd, tournamentCmd, deckCmd, relevanceCmd, pricesCmd, setsCmd, cardsCmd)
	rootCmd.AddCommand(harvestCmd)
}

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Runs a harvest to completion, or enqueues it when the broker is shared.",
}

// runHarvest dispatches the harvest, with a process local broker it then
// runs the workers until every job it led to is done.
func runHarvest(cmd *cobra.Command, dispatch func(ctx context.Context, o *harvest.Orchestrator) error) {
	ctx := cmd.Context()

	cfg, err := readConfig()
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		serviceutil.Fatal("init", err)
	}
	defer a.Close()

	err = dispatch(ctx, a.orchestrator)
	if err != nil {
		serviceutil.Fatal("dispatch "+cmd.Name(), err)
	}
	if !a.local() {
		slog.Info("harvest enqueued", "name", cmd.Name())
		return
	}

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		a.pool.Run(runCtx)
		close(done)
	}()

	start := time.Now()
	err = a.pool.Wait(ctx)
	stop()
	<-done
	if err != nil {
		serviceutil.Fatal("wait for "+cmd.Name(), err)
	}
	slog.Info("harvest done", "name", cmd.Name(), "seconds", time.Since(start).Seconds())
}

var formatsCmd = &cobra.Command{
	Use:   "formats [--force]",
	Short: "Harvests the last tournaments of every format.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runHarvest(cmd, func(ctx context.Context, o *harvest.Orchestrator) error {
			return o.HarvestFormats(ctx, harvestForce)
		})
	},
}

var tournamentCmd = &cobra.Command{
	Use:   "tournament <url>",
	Short: "Harvests the decks of a stored tournament.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runHarvest(cmd, func(ctx context.Context, o *harvest.Orchestrator) error {
			return o.HarvestTournament(ctx, args[0])
		})
	},
}

var deckCmd = &cobra.Command{
	Use:   "deck <id> [--format MO]",
	Short: "Harvests the cards of a deck.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runHarvest(cmd, func(ctx context.Context, o *harvest.Orchestrator) error {
			return o.HarvestDeck(ctx, args[0], harvestFormat)
		})
	},
}

var relevanceCmd = &cobra.Command{
	Use:   "relevance",
	Short: "Recomputes which cards are relevant from the last two weeks of tournaments.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runHarvest(cmd, func(ctx context.Context, o *harvest.Orchestrator) error {
			return o.UpdateRelevance(ctx)
		})
	},
}

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Harvests today's price of every relevant card.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runHarvest(cmd, func(ctx context.Context, o *harvest.Orchestrator) error {
			return o.HarvestPrices(ctx)
		})
	},
}

var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "Harvests every set and the cards of the new ones.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runHarvest(cmd, func(ctx context.Context, o *harvest.Orchestrator) error {
			return o.HarvestSets(ctx)
		})
	},
}

var cardsCmd = &cobra.Command{
	Use:   "cards [--page N | --set CODE]",
	Short: "Harvests the card listing from a page on, or every card of a set.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runHarvest(cmd, func(ctx context.Context, o *harvest.Orchestrator) error {
			return o.HarvestCards(ctx, harvestPage, harvestSet)
		})
	},
}
