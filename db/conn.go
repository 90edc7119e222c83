package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tunes the pool built by NewPool. Zero values keep pgx defaults.
type PoolOptions struct {
	Schema          string
	MaxConns        int32
	ConnMaxLifetime time.Duration
}

// NewPool constructs a pgx connection pool using the provided connection string.
// When opts.Schema is set every connection starts with search_path pointing at
// it, so queries address the tables unqualified.
func NewPool(ctx context.Context, connString string, opts PoolOptions) (*pgxpool.Pool, error) {
	if connString == "" {
		return nil, fmt.Errorf("db: empty connection string")
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("db: parse config: %w", err)
	}
	if opts.Schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = opts.Schema
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.ConnMaxLifetime > 0 {
		cfg.MaxConnLifetime = opts.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: create pool: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates schema if it does not exist yet.
func EnsureSchema(ctx context.Context, exec DBTX, schema string) error {
	if schema == "" {
		return nil
	}
	if _, err := exec.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
		return fmt.Errorf("db: create schema %s: %w", schema, err)
	}
	return nil
}
