package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/logger"
	"fintrack/internal/middleware"
	"fintrack/internal/server"
	"fintrack/internal/services"
)

// @title           Fintrack API
// @version         1.0
// @description     Personal finance tracker: categories, transactions, budgets and reports.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

// @securityDefinitions.apikey ServiceKeyAuth
// @in header
// @name X-Service-Key
// @description Operator key for internal routes.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	config.Set(cfg)

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	if err := dbManager.RunMigrations(cfg.MigrationsPath); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	limiter, closeLimiter, err := newAuthLimiter(cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	svc := server.NewServices(dbManager.DB(), services.EvaluatorOptions{
		Batch:       cfg.BudgetEvalBatch,
		Concurrency: cfg.BudgetEvalConcurrency,
	})
	router := server.NewRouter(svc, server.Options{
		AuthLimiter: limiter,
		ServiceKey:  cfg.ServiceKey,
		Swagger:     true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Fintrack server on port %s", cfg.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newAuthLimiter uses Redis when REDIS_URL is set and process memory otherwise.
func newAuthLimiter(cfg *config.Config) (middleware.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		logger.Get().Info("REDIS_URL not set, rate limiting in process memory")
		return middleware.NewMemoryLimiter(cfg.RateLimitMaxAttempts, cfg.RateLimitWindow), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Get().Warnf("redis close error: %v", err)
		}
	}
	return middleware.NewRedisLimiter(client, cfg.RateLimitMaxAttempts, cfg.RateLimitWindow), closeFn, nil
}
