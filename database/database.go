// Package database manages the integration's PostgreSQL connection
// pool and schema migrations.
package database

import (
	"context"
	"database/sql"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tbisgaard/bridgekit/config"
	"github.com/tbisgaard/bridgekit/health"
	"github.com/tbisgaard/bridgekit/internal/log"
	"github.com/tbisgaard/bridgekit/internal/xerrors"
	"github.com/tbisgaard/bridgekit/lifespan"
)

// Pool wraps a pgx connection pool configured from the integration
// settings. The pool is opened by the lifespan manager, not at
// construction, so a Database can be registered before the server
// starts.
type Pool struct {
	settings config.DatabaseSettings
	pool     *pgxpool.Pool
}

func New(settings config.DatabaseSettings) *Pool {
	return &Pool{settings: settings}
}

// Pgx returns the underlying pool. It is nil until the lifespan
// manager has started.
func (p *Pool) Pgx() *pgxpool.Pool { return p.pool }

func (p *Pool) open(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(p.settings.URL())
	if err != nil {
		return xerrors.Wrap(err, "parse database url")
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return xerrors.Wrap(err, "create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return xerrors.Wrapf(err, "ping database %s", p.settings.Name)
	}
	p.pool = pool
	log.FromContext(ctx).Info(ctx, "database pool opened",
		"host", p.settings.Host, "database", p.settings.Name)
	return nil
}

func (p *Pool) close(ctx context.Context) error {
	if p.pool == nil {
		return nil
	}
	p.pool.Close()
	p.pool = nil
	log.FromContext(ctx).Info(ctx, "database pool closed")
	return nil
}

// Manager returns the lifespan manager that opens the pool on startup
// and closes it on shutdown.
func (p *Pool) Manager() lifespan.Manager {
	return lifespan.Func{StartFunc: p.open, StopFunc: p.close}
}

// Healthcheck reports whether the database answers a ping. Before the
// pool is opened the check reports not ready rather than erroring, so
// readiness converges once startup completes.
func (p *Pool) Healthcheck() health.Check {
	return func(ctx context.Context) (bool, error) {
		if p.pool == nil {
			return false, nil
		}
		if err := p.pool.Ping(ctx); err != nil {
			return false, nil
		}
		return true, nil
	}
}

// Migrate applies every pending migration from src, a filesystem of
// golang-migrate SQL files. Concurrent callers are serialized by the
// advisory lock golang-migrate takes on its own.
func (p *Pool) Migrate(ctx context.Context, src fs.FS) error {
	db, err := sql.Open("pgx", p.settings.URL())
	if err != nil {
		return xerrors.Wrap(err, "open migration connection")
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return xerrors.Wrapf(err, "ping database %s", p.settings.Name)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{
		MigrationsTable: "schema_migrations",
		DatabaseName:    p.settings.Name,
	})
	if err != nil {
		return xerrors.Wrap(err, "create migration driver")
	}
	source, err := iofs.New(src, ".")
	if err != nil {
		return xerrors.Wrap(err, "read migration source")
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return xerrors.Wrap(err, "create migrator")
	}

	logger := log.FromContext(ctx)
	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			logger.Debug(ctx, "schema up to date")
			return nil
		}
		return xerrors.Wrap(err, "apply migrations")
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return xerrors.Wrap(err, "read schema version")
	}
	logger.Info(ctx, "migrations applied", "version", version, "dirty", dirty)
	return nil
}
