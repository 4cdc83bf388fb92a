// Package store is the bun backed persistence layer of the dashboard.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-tagcache/internal/domain"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Driver names a supported database.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Config selects the database to connect to.
type Config struct {
	Driver Driver
	DSN    string
}

// Open connects to the configured database and wraps it with the matching
// bun dialect.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	var (
		sqldb *sql.DB
		db    *bun.DB
		err   error
	)

	switch cfg.Driver {
	case DriverSQLite:
		sqldb, err = sql.Open("sqlite3", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// a single connection keeps in-memory databases alive and serializes writers
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return db, nil
}

// Migrate applies all pending migrations embedded in the binary.
func Migrate(ctx context.Context, db *bun.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(gooseDialect(db)); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the current migration version.
func MigrationVersion(ctx context.Context, db *bun.DB) (int64, error) {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(gooseDialect(db)); err != nil {
		return 0, fmt.Errorf("set dialect: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}

func gooseDialect(db *bun.DB) string {
	if _, ok := db.Dialect().(*pgdialect.Dialect); ok {
		return "postgres"
	}
	return "sqlite3"
}

// Store groups the queries and repositories used by reads and mutations.
// Every query takes a bun.IDB so it can run inside a transaction.
type Store struct {
	db       *bun.DB
	webhooks repository.Repository[*domain.Webhook]
}

func New(db *bun.DB) *Store {
	return &Store{db: db, webhooks: NewWebhookRepository(db)}
}

// DB returns the underlying database handle.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Webhooks returns the generic webhook repository.
func (s *Store) Webhooks() repository.Repository[*domain.Webhook] {
	return s.webhooks
}

// RunInTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return s.db.RunInTx(ctx, nil, fn)
}
