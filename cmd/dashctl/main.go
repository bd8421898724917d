// Command dashctl administers dashboards from the terminal: seeding demo projects,
// importing spreadsheets, capturing snapshots and exporting tabs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/metricboard/engine/internal/app"
	"github.com/metricboard/engine/pkg/config"
	"github.com/metricboard/engine/pkg/logger"
)

var (
	verbose bool

	instance *app.App
)

var rootCmd = &cobra.Command{
	Use:           "dashctl",
	Short:         "Administer metric dashboards",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		if _, err := app.InitLogger(cfg); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		instance, err = app.New(cmd.Context(), cfg)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if instance != nil {
			_ = instance.Close()
		}
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(seedDemoCmd, projectsCmd, importCmd, syncCmd, snapshotCmd, showCmd, exportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
