package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/lorrc/taskboard/internal/adapters/metrics"
	httpAdapter "github.com/lorrc/taskboard/internal/adapters/primary/http"
	mw "github.com/lorrc/taskboard/internal/adapters/primary/http/middleware"
	"github.com/lorrc/taskboard/internal/adapters/primary/stream"
	"github.com/lorrc/taskboard/internal/adapters/secondary/postgres"
	"github.com/lorrc/taskboard/internal/auth"
	"github.com/lorrc/taskboard/internal/config"
	"github.com/lorrc/taskboard/internal/core/services"
	"github.com/lorrc/taskboard/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)
	logger.Debug("loaded configuration", "config", cfg.String())

	// 3. Initialize Database Pool
	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Initialize Security, Metrics & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	metricsRegistry := metrics.NewRegistry()
	streamMetrics := metrics.NewStreamMetrics(metricsRegistry)

	registry := stream.NewRegistry(streamMetrics, logger)

	// 5. Initialize Rate Limiters
	var generalRateLimiter, streamRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalConfig := mw.DefaultRateLimiterConfig()
		generalConfig.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		generalConfig.BurstSize = cfg.RateLimit.BurstSize
		generalRateLimiter = mw.NewRateLimiter(generalConfig)

		streamConfig := mw.StreamRateLimiterConfig()
		streamConfig.RequestsPerSecond = cfg.RateLimit.StreamRPS
		streamConfig.BurstSize = cfg.RateLimit.StreamBurst
		streamRateLimiter = mw.NewRateLimiter(streamConfig)

		defer generalRateLimiter.Stop()
		defer streamRateLimiter.Stop()
	}

	// 6. Dependency Injection (Wiring the Hexagon)
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	projectRepo := postgres.NewProjectRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	txManager := postgres.NewTransactionManager(pool)

	// Services (Core); the registry is both the broadcaster and the closer
	projectService := services.NewProjectService(projectRepo, taskRepo, txManager, registry, registry, logger)
	taskService := services.NewTaskService(projectRepo, taskRepo, registry, logger)

	// Handlers (Primary Adapters)
	taskHandler := httpAdapter.NewTaskHandler(taskService, errorHandler, logger)
	projectHandler := httpAdapter.NewProjectHandler(projectService, taskHandler, errorHandler, logger)
	streamHandler := httpAdapter.NewStreamHandler(
		registry,
		httpAdapter.NewStreamConfig(cfg),
		clockwork.NewRealClock(),
		errorHandler,
		logger,
	)
	healthHandler := httpAdapter.NewHealthHandler(pool, registry, cfg.App.Version)
	streamGate := mw.NewStreamGate(tokenManager, cfg.Stream.PathPrefix, streamMetrics, logger)

	// 7. Setup Router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Logger:         logger,
		Verifier:       tokenManager,
		StreamGate:     streamGate,
		Health:         healthHandler,
		Projects:       projectHandler,
		Streams:        streamHandler,
		Metrics:        metrics.Handler(metricsRegistry),
		GeneralLimiter: generalRateLimiter,
		StreamLimiter:  streamRateLimiter,
		AllowedOrigins: cfg.Stream.AllowedOrigins,
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Streams never go idle on their own; end them so Shutdown can drain.
	srv.RegisterOnShutdown(registry.Close)

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete",
		"open_subscriptions", registry.Stats().Subscribers,
	)
}
