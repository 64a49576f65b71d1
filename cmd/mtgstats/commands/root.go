package commands

import (
	"context"
	"fmt"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/pkg/restyutil"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpHttp   string
)

var rootCmd = &cobra.Command{
	Use:   "mtgstats",
	Short: "mtgstats harvests tournaments, deck lists, cards and prices of Magic: The Gathering.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)
		if dumpHttp == "" {
			return nil
		}
		output, err := restyutil.NewFilesystemOutput(dumpHttp)
		if err != nil {
			return fmt.Errorf("http dump directory: %w", err)
		}
		restyutil.SetDumpOutput(output)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The configuration file, <name>.local.<ext> is merged over it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "Write every http exchange of the scrapers into this directory.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
