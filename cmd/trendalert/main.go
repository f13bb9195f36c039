// Command trendalert runs the trend alert engine: it loads configuration,
// opens the database, wires the notification channels, starts the alerting
// engine and scheduler, and serves the management API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/signalwatch/trendalert-go/internal/alerting"
	apiv2 "github.com/signalwatch/trendalert-go/internal/api/v2"
	"github.com/signalwatch/trendalert-go/internal/conf"
	"github.com/signalwatch/trendalert-go/internal/datastore"
	"github.com/signalwatch/trendalert-go/internal/datastore/repository"
	"github.com/signalwatch/trendalert-go/internal/logger"
	"github.com/signalwatch/trendalert-go/internal/notification"
	"github.com/signalwatch/trendalert-go/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configFile string

	root := &cobra.Command{
		Use:   "trendalert",
		Short: "Financial trend alert engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile)
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file (yaml)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	settings, err := conf.Load(configFile)
	if err != nil {
		return err
	}

	log := logger.NewSlogLogger(os.Stdout, parseLevel(settings.Logging.LogLevel()), nil)

	db, err := datastore.Open(settings.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := datastore.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	registry, err := notification.BuildRegistry(settings.Channels, log)
	if err != nil {
		return fmt.Errorf("failed to build notification channels: %w", err)
	}
	notification.Initialize(registry)

	metrics := observability.NewMetrics()
	bus := alerting.NewTrendBus()

	engine, scheduler, err := alerting.Initialize(alerting.EngineDeps{
		Rules:      repository.NewAlertRuleRepository(db),
		Alerts:     repository.NewTrendAlertRepository(db),
		Thresholds: repository.NewThresholdRepository(db),
		Batches:    repository.NewBatchRepository(db),
		Registry:   registry,
		Settings:   settings.Alerting,
		Metrics:    metrics,
		Log:        log,
	}, bus)
	if err != nil {
		return fmt.Errorf("failed to initialize alerting: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	apiv2.New(e, apiv2.Options{
		Engine:     engine,
		Bus:        bus,
		Rules:      repository.NewAlertRuleRepository(db),
		Alerts:     repository.NewTrendAlertRepository(db),
		Thresholds: repository.NewThresholdRepository(db),
		Batches:    repository.NewBatchRepository(db),
		Metrics:    metrics,
		Log:        log,
	})

	scheduler.Start()

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", logger.Error(err))
		}
	}()
	log.Info("trendalert started", logger.String("addr", addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	scheduler.Stop()
	bus.Stop()
	engine.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(ctx)
}

func parseLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.LogLevelDebug
	case "warn":
		return logger.LogLevelWarn
	case "error":
		return logger.LogLevelError
	default:
		return logger.LogLevelInfo
	}
}
