// Package store persists generated dungeons and their traces in SQLite or
// PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lawnchairsociety/dungeonmaker/internal/logger"
)

var (
	ErrNotFound      = errors.New("store: dungeon not found")
	ErrUnknownDriver = errors.New("store: unknown driver")
	ErrStoreDisabled = errors.New("store: persistence disabled")
	ErrCorruptRecord = errors.New("store: corrupt record")
)

// Store wraps the connection and its dialect
type Store struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Open connects to the configured backend and creates the schema
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var (
		db      *sql.DB
		dialect Dialect
		err     error
	)

	switch DialectType(cfg.Driver) {
	case DialectSQLite:
		dialect = NewDialect(DialectSQLite)
		db, err = openSQLite(cfg.SQLitePath)
	case DialectPostgres:
		dialect = NewDialect(DialectPostgres)
		db, err = openPostgres(cfg.Postgres)
	default:
		if !cfg.Enabled() {
			return nil, ErrStoreDisabled
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	s := &Store{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Store opened", "driver", dialect.DriverName())
	return s, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite driver needs a database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; PRAGMAs are per connection.
	db.SetMaxOpenConns(1)
	return db, nil
}

func openPostgres(cfg PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect returns the SQL dialect in use
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// migrate creates the schema if it doesn't exist
func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS dungeons (
			id ` + s.dialect.SerialPrimaryKey() + `,
			seed BIGINT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			fingerprint TEXT UNIQUE NOT NULL,
			layout TEXT NOT NULL,
			room_count INTEGER NOT NULL DEFAULT 0,
			door_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS trace_events (
			dungeon_id BIGINT NOT NULL REFERENCES dungeons(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			kind TEXT NOT NULL,
			PRIMARY KEY (dungeon_id, seq)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_dungeons_seed ON dungeons(seed)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
