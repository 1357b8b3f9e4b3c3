package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/candleworks/catalogsync/internal/api"
	"github.com/candleworks/catalogsync/internal/config"
	"github.com/candleworks/catalogsync/internal/history"
	"github.com/candleworks/catalogsync/internal/logger"
	"github.com/candleworks/catalogsync/internal/publisher"
	"github.com/candleworks/catalogsync/internal/remote"
	"github.com/candleworks/catalogsync/internal/scheduler"
	"github.com/candleworks/catalogsync/internal/sync"
	"github.com/candleworks/catalogsync/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the synchronization service",
	Long: `Start the synchronization service.

The service requires a configuration file (--config) that specifies:
- Remote file host connection details and export file pattern
- Cron schedule and timezone
- Staging directory and parser settings

Scheduled syncs begin firing immediately; the REST API exposes manual
triggers, run status, and run history.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	serverRequestTimeout   = 10 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 15 * time.Second
	serverIdleTimeout      = 60 * time.Second
)

func init() {
	serveCmd.Flags().String("address", "", "Address to listen on (overrides config)")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		logger.Fatalf("Failed to bind address flag: %v", err)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		logger.Fatalf("Failed to bind config flag: %v", err)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

// buildOrchestrator assembles the sync pipeline from configuration.
func buildOrchestrator(cfg *config.Config, metrics *telemetry.Metrics) *sync.Orchestrator {
	client := remote.NewSFTPClient(&cfg.Remote)
	store := history.NewStore(history.DefaultCapacity)

	var pub sync.Publisher
	if cfg.Publisher != nil {
		pub = publisher.NewClient(cfg.Publisher)
		logger.Infof("Publishing parsed records to %s", cfg.Publisher.Endpoint)
	}

	return sync.NewOrchestrator(cfg, client, store, pub, metrics)
}

func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Infof("Loaded configuration from %s (remote: %s@%s:%d, schedule: %q)",
		configPath, cfg.Remote.User, cfg.Remote.Host, cfg.Remote.GetPort(), cfg.Schedule.Expression)
	return cfg, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	logger.Initialize(viper.GetBool("debug"))

	cfg, err := loadConfig(viper.GetString("config"))
	if err != nil {
		return err
	}

	address := viper.GetString("address")
	if address == "" {
		address = cfg.Server.GetAddress()
	}

	metrics := telemetry.NewMetrics()
	orchestrator := buildOrchestrator(cfg, metrics)

	driver := scheduler.NewDriver(orchestrator, metrics)
	defer driver.Close()
	if err := driver.Start(cfg.Schedule.Expression, cfg.Schedule.GetTimezone()); err != nil {
		return fmt.Errorf("failed to arm schedule: %w", err)
	}

	router := api.NewServer(orchestrator, driver, metrics,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			api.LoggingMiddleware,
		),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		logger.Infof("Server listening on %s", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("Shutting down server...")

	driver.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logger.Infof("Server shutdown complete")
	return nil
}
