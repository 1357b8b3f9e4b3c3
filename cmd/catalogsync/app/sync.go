package app

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/candleworks/catalogsync/internal/logger"
	"github.com/candleworks/catalogsync/internal/sync"
	"github.com/candleworks/catalogsync/internal/telemetry"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single synchronization and exit",
	Long: `Run one synchronization against the configured remote host and exit.

Useful for smoke-testing a configuration before deploying the service, and
for driving syncs from an external scheduler instead of the built-in one.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := syncCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	logger.Initialize(viper.GetBool("debug"))

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	orchestrator := buildOrchestrator(cfg, telemetry.NewMetrics())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orchestrator.Run(ctx, sync.TriggerManual); err != nil {
		return err
	}

	recent := orchestrator.History().Recent(1)
	if len(recent) == 1 {
		logger.Infof("Sync finished: %d records parsed, %d lines rejected (source %s)",
			recent[0].RecordsProcessed, recent[0].RejectedLines, recent[0].SourceFile)
	}
	return nil
}
