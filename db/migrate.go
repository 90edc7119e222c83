package db

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationsTable = "schema_migrations"

// Migrator applies the embedded schema migrations inside one Postgres schema.
type Migrator struct {
	m     *migrate.Migrate
	close func() error
}

// NewMigrator creates schema when missing and prepares golang-migrate on top
// of pool. The pool must have been built with the same schema as search_path.
func NewMigrator(ctx context.Context, pool *pgxpool.Pool, schema string) (*Migrator, error) {
	if err := EnsureSchema(ctx, pool, schema); err != nil {
		return nil, err
	}

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("db: open migrations: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	driver, err := pgxmigrate.WithInstance(sqlDB, &pgxmigrate.Config{
		SchemaName:      schema,
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: migrate instance: %w", err)
	}

	return &Migrator{
		m: m,
		close: func() error {
			srcErr, dbErr := m.Close()
			return errors.Join(srcErr, dbErr, sqlDB.Close())
		},
	}, nil
}

// Up applies every pending migration. Already being current is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: migrate up: %w", err)
	}
	return nil
}

// Down rolls back the given number of migrations.
func (mg *Migrator) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("db: migrate down: steps must be positive")
	}
	if err := mg.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: migrate down: %w", err)
	}
	return nil
}

// Version reports the applied version and whether the last run left it dirty.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("db: migrate version: %w", err)
	}
	return v, dirty, nil
}

func (mg *Migrator) Close() error {
	return mg.close()
}

// Migrate is the one-shot form used at service start-up and by test harnesses.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	mg, err := NewMigrator(ctx, pool, schema)
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Up()
}
