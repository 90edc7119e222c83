package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cusext/db"
)

const sharedSchema = "cusext"

// ApplyMigrations opens a pool on dsn and brings the schema up to date with the
// embedded migrations. When isolate is true a per-run schema is used and the
// returned teardown drops it.
func ApplyMigrations(ctx context.Context, dsn string, isolate bool) (*pgxpool.Pool, func(context.Context) error, error) {
	schema := sharedSchema
	cleanup := func(context.Context) error { return nil }

	if isolate {
		schema = fmt.Sprintf("cusext_run_%d", time.Now().UnixNano())
		ident := pgx.Identifier{schema}.Sanitize()
		cleanup = func(ctx context.Context) error {
			dropConn, err := pgx.Connect(ctx, dsn)
			if err != nil {
				return err
			}
			defer dropConn.Close(ctx)
			_, err = dropConn.Exec(ctx, "DROP SCHEMA IF EXISTS "+ident+" CASCADE")
			return err
		}
	}

	pool, err := db.NewPool(ctx, dsn, db.PoolOptions{Schema: schema, MaxConns: 32})
	if err != nil {
		return nil, nil, fmt.Errorf("connect pool: %w", err)
	}

	if err := db.Migrate(ctx, pool, schema); err != nil {
		pool.Close()
		_ = cleanup(ctx)
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}

	return pool, cleanup, nil
}
