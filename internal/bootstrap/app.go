// Package bootstrap wires configuration, storage, and the pipeline stages
// into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/api"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/collector"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/config"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/database"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/dedupe"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/events"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/extraction"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/httpserver"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/metrics"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/orchestrator"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/outcome"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/retry"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/scheduler"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/transcribe"
)

// Run starts the pipeline service and blocks until shutdown.
func Run() error {
	cfg, err := config.Load(config.Path("config.yml"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting",
		logger.String("service", cfg.Service.Name),
		logger.String("version", cfg.Service.Version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		defer redisClient.Close()
	}

	var (
		deduper   dedupe.Deduper
		publisher *events.Publisher
	)
	if redisClient != nil {
		deduper = dedupe.NewRedis(redisClient)
		publisher = events.NewPublisher(redisClient, log)
	} else {
		log.Warn("redis not configured, using in-process dedupe and no events")
		deduper = dedupe.NewMemory()
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Storage.
	predictions := database.NewPredictionRepository(db)
	jobs := database.NewJobRepository(db)
	directory := database.NewDirectory(db)

	// Pipeline stages.
	sources := []collector.Source{
		collector.NewYouTubeSource(cfg.Sources.YouTube.BaseURL, cfg.Sources.YouTube.APIKey),
		collector.NewTwitterSource(cfg.Sources.Twitter.BaseURL, cfg.Sources.Twitter.APIKey),
	}
	coll := collector.New(sources, map[domain.ChannelType]int{
		domain.ChannelYouTube: cfg.Sources.YouTube.RequestsPerMin,
		domain.ChannelTwitter: cfg.Sources.Twitter.RequestsPerMin,
	}, log)

	whisper := transcribe.NewWhisperClient(cfg.Transcriber.BaseURL)
	normalizer := transcribe.NewNormalizer(whisper, cfg.Transcriber.Timeout, log)

	model := extraction.NewAnthropicClient(extraction.AnthropicConfig{
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		MaxTokens:      cfg.LLM.MaxTokens,
		RequestsPerMin: cfg.LLM.RequestsPerMin,
	})
	engine := extraction.NewEngine(model, cfg.LLM.MaxAttempts, log)

	var market outcome.MarketDataSource
	if cfg.Outcome.MarketBaseURL != "" {
		market = outcome.NewHTTPMarketSource(cfg.Outcome.MarketBaseURL)
	}

	var prices orchestrator.PriceSource
	if market != nil {
		prices = market
	}
	pipeline := orchestrator.NewPipeline(coll, normalizer, engine, predictions, prices, deduper, m, log)

	orch := orchestrator.New(jobs, directory, pipeline, publisher, m, orchestrator.Config{
		Workers:       cfg.Orchestrator.Workers,
		CollectWindow: cfg.Orchestrator.CollectWindow,
	}, log)

	// Outcome validator sweeps in the background when market data is
	// configured.
	if market != nil {
		validator := outcome.NewValidator(predictions, market, outcome.ValidatorConfig{
			Tolerance: cfg.Outcome.TolerancePct,
		}, publisher, m, log)
		go validator.Run(ctx, cfg.Outcome.SweepInterval)
	} else {
		log.Warn("market data not configured, outcome validation disabled")
	}

	sched := scheduler.New(cfg.Schedules, orch, log)
	sched.Start()

	// HTTP surface.
	server := httpserver.New(cfg.Service.Port, cfg.Service.Debug, log)
	checks := map[string]httpserver.HealthCheck{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if cfg.Transcriber.BaseURL != "" {
		checks["transcriber"] = whisper.Health
	}
	httpserver.RegisterHealth(server.Router(), checks)

	api.RegisterRoutes(server.Router(),
		api.NewExtractionHandler(orch, jobs, sched, log),
		api.NewPredictionHandler(predictions, log),
		registry,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", logger.Error(err))
	}

	orch.Wait()
	log.Info("stopped")
	return nil
}

// connectDatabase retries the initial connection; Postgres may still be
// coming up when the service starts.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*sqlx.DB, error) {
	var db *sqlx.DB

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = 5

	err := retry.Do(ctx, retryCfg, func() error {
		var err error
		db, err = database.Connect(ctx, cfg)
		if err != nil {
			log.Warn("database connect failed, retrying", logger.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	log.Info("database connected",
		logger.String("host", cfg.Host),
		logger.String("database", cfg.Database),
	)
	return db, nil
}
