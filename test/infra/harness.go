package infra

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Harness owns the lifecycle of the Postgres test database and pgx pool.
type Harness struct {
	container *PGContainer
	pool      *pgxpool.Pool
	dsn       string
	teardown  func(context.Context) error
}

// NewHarness reuses CUSEXT_TEST_DSN or DATABASE_URL when set, otherwise boots a
// Postgres 16 container. Migrations are applied into a schema private to this
// harness.
func NewHarness(ctx context.Context) (*Harness, error) {
	dsn := os.Getenv("CUSEXT_TEST_DSN")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}

	container, dsn, err := StartPostgres16(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	pool, teardown, err := ApplyMigrations(ctx, dsn, true)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &Harness{
		container: container,
		pool:      pool,
		dsn:       dsn,
		teardown:  teardown,
	}, nil
}

// Pool exposes the configured pgx pool. Its search_path points at the
// harness schema.
func (h *Harness) Pool() *pgxpool.Pool {
	return h.pool
}

// DSN returns the connection string for direct connections (e.g., chaos).
func (h *Harness) DSN() string {
	return h.dsn
}

// Close tears down resources.
func (h *Harness) Close(ctx context.Context) {
	if h.pool != nil {
		h.pool.Close()
	}
	if h.teardown != nil {
		_ = h.teardown(ctx)
	}
	_ = h.container.Terminate(ctx)
}

// Reset truncates mutable tables to provide a clean slate for the next test.
func (h *Harness) Reset(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, "TRUNCATE TABLE T_MST_CUS_LDS_AGRMNT_INFO_DT, T_MST_CUS_ACT_DT, T_MST_CUS_OPE"); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// OpenPool is the package-test entry point: it skips t when neither a DSN nor
// docker is available and closes everything when t finishes.
func OpenPool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if os.Getenv("CUSEXT_TEST_DSN") == "" && os.Getenv("DATABASE_URL") == "" && !DockerAvailable(ctx) {
		t.Skip("no CUSEXT_TEST_DSN, DATABASE_URL or docker; skipping integration test")
	}

	h, err := NewHarness(ctx)
	if err != nil {
		t.Fatalf("start harness: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		h.Close(ctx)
	})
	return h.Pool()
}
