// cmd/ranking-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"livebetter/internal/catalog"
	"livebetter/internal/common/config"
	"livebetter/internal/common/database"
	"livebetter/internal/common/logger"
	"livebetter/internal/common/observability"
	"livebetter/internal/nlparse"
	"livebetter/internal/rankcache"
	"livebetter/internal/ranking"
	"livebetter/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting ranking service...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("ranking-service")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	// Redis is the primary cache tier only; the service runs on the
	// in-process tier if it never comes up.
	var primary rankcache.Backend
	if cfg.Cache.Enabled && cfg.Database.Redis.Address != "" {
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Warn("redis unavailable, using in-process cache only", zap.Error(err))
		} else {
			defer redis.Close()
			primary = rankcache.NewRedisBackend(redis.GetClient(), config.GetDuration(cfg.Cache.OpTimeout))
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Assemble the ranking pipeline ---
	tax := ranking.DefaultTaxEstimator()
	if cfg.Tax.TablePath != "" {
		bands, err := ranking.LoadBandTable(cfg.Tax.TablePath)
		if err != nil {
			zapLog.Fatal("tax band table load failed", zap.Error(err))
		}
		tax, err = ranking.NewTaxEstimator(bands)
		if err != nil {
			zapLog.Fatal("tax band table invalid", zap.Error(err))
		}
	}

	store := catalog.NewPostgresStore(pg.DB, log)
	cache := rankcache.New(&cfg.Cache, primary, log)
	engine := ranking.NewEngine(
		store,
		cache,
		tax,
		ranking.NewEssentialsCalculator(),
		ranking.NewQualityOfLifeNormalizer(cfg.Scoring.CrimeRateCeiling),
		obs,
		log,
		cfg.Scoring.WorkerPoolSize,
	)
	parser := nlparse.NewParser(cfg.APIs.GenAI, log)

	srv := server.New(&cfg.Server, engine, parser, store, cache, log)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLog.Info("Shutdown signal received, draining requests...", zap.String("signal", sig.String()))
	case err := <-errCh:
		zapLog.Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Ranking service stopped")
}
