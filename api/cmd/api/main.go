package main

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

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/signupform/signup/api/internal/app/migrate"
	httpx "github.com/signupform/signup/api/internal/http"
	"github.com/signupform/signup/api/internal/repository"
	"github.com/signupform/signup/api/internal/repository/postgres"
	"github.com/signupform/signup/api/internal/repository/redisstore"
	"github.com/signupform/signup/api/internal/repository/sqlite"
	"github.com/signupform/signup/api/internal/service/registration"
	"github.com/signupform/signup/pkg/config"
	"github.com/signupform/signup/pkg/logger"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := config.LoadAPIConfig()
	log := logger.New("signup-api", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	registrationSvc := registration.New(users, log, cfg.BcryptCost)
	router := httpx.NewRouter(log, registrationSvc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "store", cfg.StoreDriver)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

// openStore connects the configured backend, applies SQL migrations when
// enabled, and returns the repository with its release function.
func openStore(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (repository.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		if err := ensureSchema(ctx, cfg, "sqlite", sqlite.DSN(cfg.SQLitePath), log); err != nil {
			return nil, nil, err
		}
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.New(db), func() { db.Close() }, nil
	case config.StorePostgres:
		if err := ensureSchema(ctx, cfg, "postgres", cfg.DatabaseURL, log); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		return postgres.New(pool), pool.Close, nil
	case config.StoreRedis:
		client, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(client, cfg.RedisPrefix), func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func ensureSchema(ctx context.Context, cfg config.APIConfig, dialect, dsn string, log *slog.Logger) error {
	runner, err := migrate.New(dialect, dsn, log)
	if err != nil {
		return fmt.Errorf("configure migrations: %w", err)
	}
	if err := runner.Ping(ctx); err != nil {
		return err
	}
	if !cfg.AutoMigrate {
		return nil
	}
	if err := runner.Ensure(ctx); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	return nil
}
