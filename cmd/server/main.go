package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thalanet/bloodmatch/internal/alerting"
	"github.com/thalanet/bloodmatch/internal/config"
	"github.com/thalanet/bloodmatch/internal/generator"
	"github.com/thalanet/bloodmatch/internal/handlers"
	"github.com/thalanet/bloodmatch/internal/intake"
	"github.com/thalanet/bloodmatch/internal/matching"
	"github.com/thalanet/bloodmatch/internal/metrics"
	"github.com/thalanet/bloodmatch/internal/notification"
	"github.com/thalanet/bloodmatch/internal/pool"
	"github.com/thalanet/bloodmatch/internal/predictor"
	"github.com/thalanet/bloodmatch/internal/privacy"
	"github.com/thalanet/bloodmatch/internal/registry"
	"github.com/thalanet/bloodmatch/internal/scheduler"
	"github.com/thalanet/bloodmatch/internal/scoring"
)

const (
	serviceName = "bloodmatch"
	version     = "1.0.0"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	logger := setupLogging(cfg)
	logger.Info("Starting Blood Matching Service",
		"service", serviceName,
		"version", version,
		"environment", cfg.Environment)

	// Setup metrics collector
	metricsCollector := metrics.NewCollector(prometheus.DefaultRegisterer)

	// Setup donor pool. Development runs seed a synthetic pool so matching
	// endpoints are usable without an upstream loader.
	donorPool := pool.NewStore()
	if cfg.Environment != "production" {
		seeded := generator.New(time.Now().UnixNano()).Donors(500)
		donorPool.Replace(seeded)
		logger.Info("seeded synthetic donor pool", "donors", len(seeded))
	}

	// Setup matching pipeline
	scorer := scoring.NewEngine(cfg.Scoring)
	matcher := matching.NewMatcher(cfg.Matching, scorer, logger)

	// Contact details in logs and exports are masked outside debug runs
	var masker privacy.Masker = privacy.Redactor{}
	if cfg.Debug {
		masker = privacy.Noop{}
	}

	// Setup notification manager
	notifier := notification.NewManager(cfg.Notifications, cfg.Alerting.Channels, masker, metricsCollector, logger)

	// Setup alert manager
	alertManager := alerting.NewManager(cfg.Alerting, matcher, notifier, masker, metricsCollector, logger)

	// Setup availability predictor
	availability := predictor.NewStatic(nil)

	// Setup request intake buffer
	requestBuffer := &intake.Buffer{}

	// Setup external blood bank registry client
	var banks *registry.Client
	if cfg.Registry.Enabled {
		banks = registry.NewClient(cfg.Registry, logger)
	}

	// Setup scheduler for periodic tasks
	taskScheduler := scheduler.New(cfg.Scheduler, alertManager, requestBuffer, donorPool, availability, logger)

	// Setup HTTP handlers
	httpHandlers := handlers.NewHTTPHandler(
		cfg.Matching,
		matcher,
		alertManager,
		requestBuffer,
		donorPool,
		availability,
		banks,
		logger,
	)

	// Setup HTTP router
	httpRouter := mux.NewRouter()
	httpHandlers.RegisterRoutes(httpRouter)

	// Add Prometheus metrics endpoint
	httpRouter.Handle("/metrics", promhttp.Handler())

	// Setup HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      httpRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// Start Kafka intake
	if cfg.Intake.Enabled {
		consumer := intake.NewConsumer(cfg.Intake, requestBuffer, logger)
		defer func() {
			if err := consumer.Close(); err != nil {
				logger.Error("Failed to close intake consumer", "error", err)
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("Request intake failed", "error", err)
				cancel()
			}
		}()
	}

	// Start scheduler
	if cfg.Scheduler.Enabled {
		if err := taskScheduler.Start(ctx); err != nil {
			logger.Error("Failed to start scheduler", "error", err)
			os.Exit(1)
		}
	}

	// Start HTTP server
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting HTTP server", "port", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	// Graceful shutdown
	logger.Info("Shutting down services...")
	cancel()

	if cfg.Scheduler.Enabled {
		taskScheduler.Stop()
	}

	// Stop HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown HTTP server gracefully", "error", err)
	}

	// Wait for all goroutines to finish
	wg.Wait()

	logger.Info("Service shutdown complete")
}

// setupLogging configures structured logging
func setupLogging(cfg *config.Config) *slog.Logger {
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: cfg.Debug,
	}

	var handler slog.Handler
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, handlerOptions)
	} else {
		handler = slog.NewTextHandler(os.Stdout, handlerOptions)
	}

	logger := slog.New(handler)
	logger = logger.With(
		"service", serviceName,
		"version", version,
	)

	return logger
}
