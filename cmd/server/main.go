package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"dengue-platform/internal/app"
	"dengue-platform/internal/cache"
	"dengue-platform/internal/config"
	"dengue-platform/internal/events"
	"dengue-platform/internal/handlers"
	"dengue-platform/internal/repository"
	"dengue-platform/internal/services"
	"dengue-platform/pkg/database"
	"dengue-platform/pkg/logging"
	"dengue-platform/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger("dengue-api", cfg)

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting dengue prediction API server", logging.Fields{
		"version":      app.Version,
		"server_host":  cfg.Server.Host,
		"server_port":  cfg.Server.Port,
		"model_source": cfg.Models.Source,
		"db_enabled":   cfg.Database.Enabled,
		"cache":        cfg.Redis.Addr != "",
		"events":       len(cfg.Kafka.Brokers) > 0,
	})

	metricsCollector := metrics.NewCollector("dengue_platform")

	// Models and population reference are loaded once and shared read-only
	registry, err := app.LoadRegistry(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load models", logging.Fields{}, err)
	}

	calculator, err := app.NewCalculator(cfg)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load population table", logging.Fields{}, err)
	}

	serviceCfg := services.PredictionServiceConfig{
		Registry:   registry,
		Calculator: calculator,
		Logger:     logger,
		Metrics:    metricsCollector,
	}

	var summaryService *services.SummaryService
	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(app.DatabaseConfig(cfg), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()

		repo := repository.NewPredictionRepository(db, logger, metricsCollector)
		serviceCfg.Repo = repo
		summaryService = services.NewSummaryService(repo, logger, metricsCollector)
	}

	if cfg.Redis.Addr != "" {
		resultCache, err := cache.NewRedisCache(ctx, cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to result cache", logging.Fields{
				"addr": cfg.Redis.Addr,
			}, err)
		}
		defer resultCache.Close()
		serviceCfg.Cache = resultCache
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := events.NewKafkaPublisher(events.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		})
		defer publisher.Close()
		serviceCfg.Publisher = publisher
	}

	predictionService := services.NewPredictionService(serviceCfg)

	handler := handlers.NewPredictionHandler(predictionService, summaryService, logger, metricsCollector, cfg.Server.MaxUploadBytes)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handlers.NewRouter(handler, cfg.CORS.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
