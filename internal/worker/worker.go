// Package worker wires one worker process: a unit of request- and
// connection-handling capacity owning one listening endpoint, one connection
// registry, one cache accessor and one publisher/subscriber pair on the bus.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tkrause92/askwave/internal/app"
	"github.com/tkrause92/askwave/internal/cache"
	"github.com/tkrause92/askwave/internal/config"
	"github.com/tkrause92/askwave/internal/httpserver"
	"github.com/tkrause92/askwave/internal/logging"
	"github.com/tkrause92/askwave/internal/postgres"
	"github.com/tkrause92/askwave/internal/redis"
	"github.com/tkrause92/askwave/internal/retry"
	"github.com/tkrause92/askwave/internal/ws"
)

const (
	connectAttempts       = 5
	connectInitialBackoff = 500 * time.Millisecond
	connectTimeout        = 10 * time.Second
	shutdownTimeout       = 10 * time.Second
)

// Run starts one worker and blocks until shutdown. Every startup step must
// succeed before the listener opens; any failure is returned so the process
// exits non-zero and the supervisor's restart policy applies.
func Run(cfg *config.Config) error {
	workerID := uuid.New().String()
	log := logging.WithWorker(workerID, cfg.WorkerSlot)
	log.Info("Worker starting", "port", cfg.Port)

	startupCtx := context.Background()

	// Step 1: primary store.
	pool, err := connectStore(startupCtx, cfg, log)
	if err != nil {
		return fmt.Errorf("store startup failed: %w", err)
	}
	defer pool.Close()

	// Step 2: broadcast bus, publisher and subscriber roles.
	rdb, err := connectBus(startupCtx, cfg, log)
	if err != nil {
		return fmt.Errorf("bus startup failed: %w", err)
	}
	defer func() { _ = rdb.Close() }()

	bus := redis.NewBus(rdb, workerID)
	hub := ws.NewHub()

	subCtx, cancelSub := context.WithCancel(context.Background())
	defer cancelSub()

	// Incoming bus messages go straight to the local registry; delivery to
	// this worker's own sockets rides the same path as everyone else's.
	sub, err := bus.Subscribe(subCtx, hub.Deliver)
	if err != nil {
		return fmt.Errorf("bus subscribe failed: %w", err)
	}
	defer sub.Close()

	// Step 3: cache accessor bound to store and cache backend.
	eventRepo := postgres.NewEventRepo(pool)
	questionRepo := postgres.NewQuestionRepo(pool)
	lookup := cache.NewEventCache(redis.NewCacheStore(rdb), eventRepo, cfg.CacheTTL)

	appSvc := app.NewService(eventRepo, questionRepo, lookup, bus)
	wsHandler := ws.NewHandler(hub, ws.NewCheckOrigin(cfg.AllowedOrigin, cfg.AppEnv == "development"))
	srv := httpserver.NewServer(cfg, appSvc, wsHandler, pool, rdb)

	// Step 4: open the listening endpoint, only now that the above succeeded.
	done := runGracefulShutdown(srv, hub, log)

	log.Info("Worker accepting connections", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	log.Info("Worker stopped")
	return nil
}

func connectStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*pgxpool.Pool, error) {
	policy := connectPolicy("store", log)
	pool, err := retry.Do(ctx, policy, func() (*pgxpool.Pool, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return postgres.Connect(attemptCtx, cfg.DatabaseURL)
	})
	if err != nil {
		return nil, err
	}

	migrateCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := postgres.RunMigrations(migrateCtx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func connectBus(ctx context.Context, cfg *config.Config, log *slog.Logger) (*goredis.Client, error) {
	policy := connectPolicy("bus", log)
	return retry.Do(ctx, policy, func() (*goredis.Client, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return redis.NewClient(attemptCtx, cfg.RedisURL)
	})
}

func connectPolicy(target string, log *slog.Logger) retry.Policy {
	return retry.Policy{
		MaxAttempts:    connectAttempts,
		InitialBackoff: connectInitialBackoff,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			log.Warn("Connect attempt failed, retrying",
				"target", target, "attempt", attempt, "backoff", backoff, "error", err)
		},
	}
}

func runGracefulShutdown(srv *httpserver.Server, hub *ws.Hub, log *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Shutdown signal received, cleaning up")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", "error", err)
		}

		hub.Stop()
		close(done)
	}()

	return done
}
