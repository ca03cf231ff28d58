package harness

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/tbisgaard/bridgekit/config"
	"github.com/tbisgaard/bridgekit/internal/xerrors"
)

// Superuser is an administrative database connection used to create
// and drop databases. It connects to the maintenance database
// "postgres" because a database cannot be dropped while connected to.
type Superuser struct {
	conn *pgx.Conn
}

func ConnectSuperuser(ctx context.Context, settings config.DatabaseSettings) (*Superuser, error) {
	conn, err := pgx.Connect(ctx, settings.WithName("postgres").URL())
	if err != nil {
		return nil, xerrors.Wrap(err, "connect superuser")
	}
	return &Superuser{conn: conn}, nil
}

func (s *Superuser) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// SetupTemplate recreates the template database. Migrate, when not
// nil, is called with settings pointing at the fresh template so the
// schema only has to be built once per test run; every test then
// clones the template.
func (s *Superuser) SetupTemplate(ctx context.Context, settings config.DatabaseSettings, migrate func(context.Context, config.DatabaseSettings) error) error {
	if _, err := s.conn.Exec(ctx, fmt.Sprintf("drop database if exists %s", TemplateDatabase)); err != nil {
		return xerrors.Wrap(err, "drop template database")
	}
	if _, err := s.conn.Exec(ctx, fmt.Sprintf("create database %s", TemplateDatabase)); err != nil {
		return xerrors.Wrap(err, "create template database")
	}
	if migrate == nil {
		return nil
	}
	if err := migrate(ctx, settings.WithName(TemplateDatabase)); err != nil {
		return xerrors.Wrap(err, "migrate template database")
	}
	return nil
}

// Isolate clones the template database into a fresh test database and
// points the environment at it, so an application constructed after
// this call connects to the clone. Connections still attached to the
// previous clone are terminated first.
func (s *Superuser) Isolate(ctx context.Context, t *testing.T) error {
	_, err := s.conn.Exec(ctx, `
		select pg_terminate_backend(pid)
		from pg_stat_activity
		where datname = $1 and pid <> pg_backend_pid()
	`, TestDatabase)
	if err != nil {
		return xerrors.Wrap(err, "terminate test database backends")
	}
	if _, err := s.conn.Exec(ctx, fmt.Sprintf("drop database if exists %s", TestDatabase)); err != nil {
		return xerrors.Wrap(err, "drop test database")
	}
	if _, err := s.conn.Exec(ctx, fmt.Sprintf("create database %s template %s", TestDatabase, TemplateDatabase)); err != nil {
		return xerrors.Wrap(err, "create test database")
	}
	t.Setenv("BRIDGEKIT_DATABASE__NAME", TestDatabase)
	return nil
}
