package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobharvest/internal/api/routes"
	"jobharvest/internal/background"
	"jobharvest/internal/config"
	"jobharvest/internal/exporter"
	"jobharvest/internal/grpc/server"
	"jobharvest/internal/logging"
	"jobharvest/internal/mux"
	"jobharvest/internal/notify"
	"jobharvest/internal/pipeline"
	"jobharvest/internal/scheduler"
	"jobharvest/pkg/models"

	"github.com/labstack/echo/v4"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitializeLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting jobharvest server", map[string]interface{}{
		"sources": len(cfg.EnabledSources()),
	})

	// Jobs from every API or scheduled run are upserted here and served by /api/v1/jobs
	store := exporter.NewMemoryStore()
	run := func(ctx context.Context, req models.ScrapeRequest) (*pipeline.Result, error) {
		sink := exporter.NewDocumentSink("api_store", store, logger)
		return pipeline.Harvest(ctx, cfg, req, logger.WithField("component", "pipeline"), sink)
	}

	opts := []background.Option{background.WithLogger(logger.WithField("component", "tasks"))}
	if cfg.Telegram.Enabled {
		telegram, err := notify.NewTelegram(cfg, logger)
		if err != nil {
			logger.Error("Telegram notifications disabled", map[string]interface{}{"error": err.Error()})
		} else {
			opts = append(opts, background.WithNotifier(telegram))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskManager := background.NewTaskManager(cfg, run, opts...)
	if err := taskManager.Start(ctx); err != nil {
		logger.Fatal("Failed to start task manager", map[string]interface{}{"error": err.Error()})
	}

	var sched *scheduler.Scheduler
	if cfg.Schedule.Enabled {
		sched = scheduler.New(cfg, taskManager, logger.WithField("component", "scheduler"))
		if err := sched.Start(ctx); err != nil {
			logger.Fatal("Failed to start scheduler", map[string]interface{}{"error": err.Error()})
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	routes.SetupRoutes(e, cfg, taskManager, store, logger.WithField("component", "http"))

	grpcServer := server.NewServer(taskManager, logger.WithField("component", "grpc"))
	multiplexer := mux.NewMultiplexer(cfg, grpcServer, e, logger)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := multiplexer.Start(address); err != nil {
		logger.Fatal("Server failed to start", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("Server listening", map[string]interface{}{"address": address})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...", map[string]interface{}{})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if sched != nil {
		<-sched.Stop().Done()
	}

	if err := multiplexer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping multiplexer", map[string]interface{}{"error": err.Error()})
	}

	// Cancels any running harvest; its task is recorded as CANCELLED
	if err := taskManager.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping task manager", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Server shutdown complete", map[string]interface{}{})
}
