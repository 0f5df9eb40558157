package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/signupform/signup/api/db"
)

type dialectInfo struct {
	sqlDriver string
	goose     goose.Dialect
}

var dialects = map[string]dialectInfo{
	"postgres": {sqlDriver: "pgx", goose: goose.DialectPostgres},
	"sqlite":   {sqlDriver: "sqlite", goose: goose.DialectSQLite3},
}

// Runner wraps database migration capabilities.
type Runner struct {
	dialect    string
	info       dialectInfo
	dsn        string
	migrations fs.FS
	log        *slog.Logger
}

// New returns a migration runner backed by goose and the bundled migrations
// for dialect ("postgres" or "sqlite").
func New(dialect, dsn string, log *slog.Logger) (Runner, error) {
	info, ok := dialects[dialect]
	if !ok {
		return Runner{}, fmt.Errorf("unsupported dialect %q", dialect)
	}
	if dsn == "" {
		return Runner{}, errors.New("empty database dsn")
	}
	migrations, err := db.Migrations(dialect)
	if err != nil {
		return Runner{}, fmt.Errorf("locate migrations: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return Runner{dialect: dialect, info: info, dsn: dsn, migrations: migrations, log: log}, nil
}

// Ensure applies pending migrations.
func (r Runner) Ensure(ctx context.Context) error {
	return r.withProvider(func(p *goose.Provider) error {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		r.log.Info("applying migrations", "dialect", r.dialect)
		results, err := p.Up(runCtx)
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		r.log.Info("migrations applied", "count", len(results))
		return nil
	})
}

// Status reports applied and pending migrations.
func (r Runner) Status(ctx context.Context) error {
	return r.withProvider(func(p *goose.Provider) error {
		statuses, err := p.Status(ctx)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		for _, st := range statuses {
			fields := []any{"version", st.Source.Version, "path", st.Source.Path, "state", string(st.State)}
			if !st.AppliedAt.IsZero() {
				fields = append(fields, "applied_at", st.AppliedAt.UTC().Format(time.RFC3339))
			}
			r.log.Info("migration status", fields...)
		}
		return nil
	})
}

// Down rolls back migrations either to the previous version or a specific target version.
func (r Runner) Down(ctx context.Context, targetVersion int64) error {
	return r.withProvider(func(p *goose.Provider) error {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		if targetVersion > 0 {
			r.log.Info("rolling back migrations", "target", targetVersion)
			if _, err := p.DownTo(runCtx, targetVersion); err != nil {
				return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
			}
		} else {
			r.log.Info("rolling back latest migration")
			if _, err := p.Down(runCtx); err != nil {
				return fmt.Errorf("rollback latest migration: %w", err)
			}
		}

		r.log.Info("rollback complete")
		return nil
	})
}

// Version returns the current schema version.
func (r Runner) Version(ctx context.Context) (int64, error) {
	var version int64
	err := r.withProvider(func(p *goose.Provider) error {
		v, err := p.GetDBVersion(ctx)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}

// Ping ensures the database connection is alive.
func (r Runner) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.withDB(func(db *sql.DB) error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		return nil
	})
}

func (r Runner) withProvider(fn func(*goose.Provider) error) error {
	return r.withDB(func(db *sql.DB) error {
		provider, err := goose.NewProvider(r.info.goose, db, r.migrations)
		if err != nil {
			return fmt.Errorf("configure goose: %w", err)
		}
		return fn(provider)
	})
}

func (r Runner) withDB(fn func(*sql.DB) error) error {
	db, err := sql.Open(r.info.sqlDriver, r.dsn)
	if err != nil {
		return fmt.Errorf("open sql connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping sql connection: %w", err)
	}

	return fn(db)
}
