package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/ai"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/config"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/db"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/metrics"
	natspkg "github.com/SolyforTrenchers/SolyforTrenchers/service/nats"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/solana"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/temporal"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/twitter"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load and validate configuration from environment
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting temporal worker",
		"temporal_host", cfg.TemporalHost,
		"namespace", cfg.TemporalNamespace,
		"task_queue", cfg.TemporalTaskQueue,
		"log_level", cfg.LogLevel,
	)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// Verify database connection
	if err := dbPool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize database store
	store := db.NewStore(dbPool)

	// Initialize Prometheus metrics collector
	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry
	logger.Info("Prometheus metrics collector initialized")

	// Start metrics HTTP server
	metricsAddr := getEnv("METRICS_ADDR", ":9091")
	metricsServer := &http.Server{
		Addr:    metricsAddr,
		Handler: promhttp.Handler(),
	}

	go func() {
		logger.Info("starting metrics HTTP server", "addr", metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}()

	// Initialize Solana RPC client
	// Note: For premium RPC endpoints, include API key in the URL
	endpoint, err := solana.SelectRandomEndpoint(cfg.SolanaRPCURLs)
	if err != nil {
		logger.Error("no solana RPC endpoint available", "error", err)
		os.Exit(1)
	}
	solanaClient := solana.NewClient(solana.NewRPCClient(endpoint), endpoint, metricsCollector, logger)
	logger.Info("initialized solana RPC client",
		"endpoint", endpoint,
		"total_endpoints", len(cfg.SolanaRPCURLs),
	)

	// Initialize NATS publisher
	natsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to create NATS publisher", "error", err)
		os.Exit(1)
	}
	defer natsPublisher.Close()
	logger.Info("connected to NATS", "url", cfg.NATSURL)

	// Initialize AI narrator for alert commentary, if configured.
	// Without a key, alerts fall back to template commentary.
	var narrator temporal.NarratorInterface
	if cfg.OpenAIAPIKey != "" {
		n, err := ai.NewNarrator(ai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.AIModel,
		}, logger)
		if err != nil {
			logger.Error("failed to create AI narrator", "error", err)
			os.Exit(1)
		}
		narrator = n
		logger.Info("AI narrator initialized", "model", cfg.AIModel)
	} else {
		logger.Warn("OPENAI_API_KEY not set, alert commentary uses templates")
	}

	// Initialize Twitter poster, if configured. The daily budget is
	// seeded from alerts already tweeted since UTC midnight so a worker
	// restart does not reset the budget.
	var poster temporal.PosterInterface
	if cfg.TwitterBearerToken != "" {
		midnight := time.Now().UTC().Truncate(24 * time.Hour)
		usedToday, err := store.CountTweetsSince(ctx, midnight)
		if err != nil {
			logger.Error("failed to count tweets since midnight", "error", err)
			os.Exit(1)
		}

		p, err := twitter.NewClient(twitter.Config{
			BearerToken: cfg.TwitterBearerToken,
			MaxPerDay:   cfg.MaxTweetsPerDay,
			MinInterval: cfg.MinTweetInterval,
		}, int(usedToday), logger)
		if err != nil {
			logger.Error("failed to create twitter client", "error", err)
			os.Exit(1)
		}
		poster = p
		logger.Info("twitter poster initialized",
			"max_per_day", cfg.MaxTweetsPerDay,
			"used_today", usedToday,
		)
	} else {
		logger.Warn("TWITTER_BEARER_TOKEN not set, alert tweets disabled")
	}

	// Initialize Temporal worker
	workerConfig := temporal.WorkerConfig{
		TemporalHost:      cfg.TemporalHost,
		TemporalNamespace: cfg.TemporalNamespace,
		TaskQueue:         cfg.TemporalTaskQueue,
		Store:             store,
		Inspector:         solanaClient,
		Publisher:         natsPublisher,
		Narrator:          narrator,
		Poster:            poster,
		Metrics:           metricsCollector,
		Logger:            logger,
	}

	worker, err := temporal.NewWorker(workerConfig)
	if err != nil {
		logger.Error("failed to create temporal worker", "error", err)
		os.Exit(1)
	}

	logger.Info("temporal worker initialized, all dependencies ready",
		"temporal_host", cfg.TemporalHost,
		"temporal_namespace", cfg.TemporalNamespace,
		"task_queue", cfg.TemporalTaskQueue,
		"risk_threshold", cfg.RugRiskThreshold,
	)

	// Ensure the daily summary cron schedule exists
	scheduleClient, err := temporal.NewClient(cfg.TemporalHost, cfg.TemporalNamespace, cfg.TemporalTaskQueue, logger)
	if err != nil {
		logger.Error("failed to create temporal schedule client", "error", err)
		os.Exit(1)
	}
	if err := scheduleClient.EnsureDailySummarySchedule(ctx); err != nil {
		logger.Warn("failed to ensure daily summary schedule", "error", err)
	}
	scheduleClient.Close()

	// Start worker in background
	workerErrors := make(chan error, 1)
	go func() {
		logger.Info("starting temporal worker")
		workerErrors <- worker.Start()
	}()

	// Wait for shutdown signal or worker error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-workerErrors:
		logger.Error("temporal worker error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Stop worker gracefully
		logger.Info("stopping temporal worker")
		worker.Stop()
		logger.Info("temporal worker stopped")

		logger.Info("shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// getEnv returns the value of an environment variable or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
