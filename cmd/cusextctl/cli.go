package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cusext/activity"
	"cusext/auth"
	"cusext/config"
	"cusext/db"
	"cusext/disagreement"
	"cusext/logging"
)

type recordService interface {
	List(ctx context.Context, activityID string, scope disagreement.Scope) ([]disagreement.Summary, error)
	Get(ctx context.Context, recordNumber string, scope disagreement.Scope) (disagreement.Detail, error)
	Delete(ctx context.Context, recordNumber string) error
}

type activityService interface {
	Delete(ctx context.Context, id string) (activity.DeleteResult, error)
}

type operatorService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.Operator, error)
	TokenFor(ctx context.Context, operatorID string) (auth.LoginResult, error)
}

type migrator interface {
	Up() error
	Down(steps int) error
	Version() (uint, bool, error)
	Close() error
}

type cli struct {
	configFile string
	debug      bool

	initOnce sync.Once
	errOnce  error
	cfg      config.Config
	pool     *pgxpool.Pool
	closer   io.Closer

	records     recordService
	activities  activityService
	operators   operatorService
	newMigrator func(ctx context.Context) (migrator, error)
}

func (c *cli) setup(ctx context.Context) error {
	c.initOnce.Do(func() {
		// Dependencies injected up front (tests) skip the database.
		if c.records != nil {
			return
		}
		c.errOnce = c.initContext(ctx)
	})
	return c.errOnce
}

func (c *cli) initContext(ctx context.Context) error {
	cfg, err := config.Load(config.LoadOptions{ConfigPath: c.configFile})
	if err != nil {
		return err
	}
	if c.debug {
		cfg.Logging.Level = "debug"
	}
	c.cfg = cfg

	logger, closer, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    "text",
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	if err != nil {
		return err
	}
	c.closer = closer

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	pool, err := db.NewPool(connectCtx, cfg.Database.DSN, db.PoolOptions{
		Schema:   cfg.Database.Schema,
		MaxConns: 2,
	})
	if err != nil {
		return err
	}
	c.pool = pool

	records := disagreement.NewRepository(pool, logger)
	c.records = disagreement.NewService(records)
	c.activities = activity.NewService(activity.NewRepository(pool, records, logger))
	c.operators = auth.NewService(auth.NewRepository(pool), cfg.Auth.JWTSecret, auth.WithTokenTTL(cfg.Auth.TokenTTL))
	c.newMigrator = func(ctx context.Context) (migrator, error) {
		return db.NewMigrator(ctx, pool, cfg.Database.Schema)
	}

	logger.Debug("cli ready", slog.String("schema", cfg.Database.Schema))
	return nil
}

func (c *cli) teardown() {
	if c.pool != nil {
		c.pool.Close()
	}
	if c.closer != nil {
		_ = c.closer.Close()
	}
}

func (c *cli) requireSecret() error {
	if c.operators == nil {
		return fmt.Errorf("operator service unavailable")
	}
	if c.pool != nil && len(c.cfg.Auth.JWTSecret) < 16 {
		return fmt.Errorf("CUSEXT_AUTH_JWT_SECRET must be set (at least 16 bytes) to issue tokens")
	}
	return nil
}
