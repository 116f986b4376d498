package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DevDizzle/profit-scout/internal/adapters/config"
	"github.com/DevDizzle/profit-scout/internal/adapters/errors/noop"
	"github.com/DevDizzle/profit-scout/internal/adapters/errors/sentry"
	"github.com/DevDizzle/profit-scout/internal/adapters/filings"
	"github.com/DevDizzle/profit-scout/internal/adapters/fundamentals"
	"github.com/DevDizzle/profit-scout/internal/adapters/postgres"
	"github.com/DevDizzle/profit-scout/internal/adapters/redis"
	"github.com/DevDizzle/profit-scout/internal/api"
	"github.com/DevDizzle/profit-scout/internal/api/health"
	"github.com/DevDizzle/profit-scout/internal/metrics"
	repo "github.com/DevDizzle/profit-scout/internal/repository/postgres"
	"github.com/DevDizzle/profit-scout/internal/services/analysis"
	"github.com/DevDizzle/profit-scout/internal/services/chatbot"
	"github.com/DevDizzle/profit-scout/internal/services/orchestrator"
	"github.com/DevDizzle/profit-scout/internal/services/resolver"
	"github.com/DevDizzle/profit-scout/internal/workers"
	"github.com/DevDizzle/profit-scout/pkg/errors"
	"github.com/DevDizzle/profit-scout/pkg/logger"
	"github.com/DevDizzle/profit-scout/pkg/ratelimit"
	"github.com/DevDizzle/profit-scout/pkg/retry"

	aiadapter "github.com/DevDizzle/profit-scout/internal/adapters/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	// Databases
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer func() { _ = pgClient.Close() }()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() { _ = redisClient.Close() }()

	// AI providers
	aiRegistry, err := aiadapter.BuildRegistry(cfg.AI)
	if err != nil {
		log.Fatalf("Failed to build AI provider registry: %v", err)
	}
	generator, err := aiRegistry.Default()
	if err != nil {
		log.Fatalf("No default AI provider: %v", err)
	}

	// Repositories and services
	securities := repo.NewSP500Repository(pgClient.DB())
	resolverSvc := resolver.NewService(securities, cfg.Chat.MaxQueryLen)

	sourceRetry := retry.Config{
		MaxAttempts: cfg.Sources.RetryAttempts,
		BaseDelay:   cfg.Sources.RetryBaseDelay,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
	}
	quant := analysis.NewQuantitativeAdapter(
		fundamentals.NewClient(cfg.Sources.FundamentalsURL, cfg.Sources.Timeout), sourceRetry)
	qual := analysis.NewQualitativeAdapter(
		filings.NewClient(cfg.Sources.FilingsURL, cfg.Sources.Timeout), sourceRetry)
	synth := analysis.NewSynthesizer(generator, cfg.AI.Temperature, cfg.AI.MaxOutputTokens, sourceRetry)

	tasks := orchestrator.NewService(quant, qual, synth, orchestrator.Options{
		MaxActiveTasks:   cfg.Tasks.MaxActiveTasks,
		StageTimeout:     cfg.Tasks.StageTimeout,
		SynthesisTimeout: cfg.Tasks.SynthesisTimeout,
		Retention:        cfg.Tasks.Retention,
		DeleteOnDelivery: cfg.Tasks.DeleteOnDelivery,
	})

	sessions := chatbot.NewSessionStore(redisClient, cfg.Chat.SessionTTL)
	chat := chatbot.NewService(resolverSvc, securities, tasks, generator, sessions, cfg.Chat.MaxMessageLen)

	// Background workers
	senderLimiter := ratelimit.NewKeyedLimiter(cfg.Chat.RateLimitCount, cfg.Chat.RateLimitWindow)
	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(workers.NewTaskJanitorWorker(
		tasks, cfg.Workers.JanitorInterval, cfg.Workers.JanitorEnabled))
	scheduler.RegisterWorker(workers.NewLimiterSweeperWorker(
		senderLimiter, cfg.Workers.LimiterSweepInterval, cfg.Workers.LimiterMaxIdle, cfg.Workers.LimiterSweepEnabled))

	// HTTP server
	handlers := api.NewHandlers(chat, resolverSvc, senderLimiter)
	stream := api.NewStreamHandler(tasks, cfg.Tasks.KeepAliveInterval, cfg.Tasks.StreamMaxWait)
	healthHandler := health.New(log, map[string]health.Checker{
		"postgres": pgClient,
		"redis":    redisClient,
	}, cfg.App.Name, cfg.App.Version)

	server := api.NewServer(api.ServerConfig{
		Port:        cfg.Server.Port,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	}, handlers, stream, healthHandler, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Info("System initialized successfully")

	waitForShutdown(cancel, server, scheduler, tasks, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// waitForShutdown blocks until a termination signal, then stops components
// in reverse start order
func waitForShutdown(
	cancel context.CancelFunc,
	server *api.Server,
	scheduler *workers.Scheduler,
	tasks *orchestrator.Service,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}

	tasks.Close()

	cancel()
	if err := scheduler.Stop(); err != nil {
		log.Warnf("Worker shutdown: %v", err)
	}

	if errorTracker != nil {
		if err := errorTracker.Flush(shutdownCtx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
