package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"cusext/activity"
	"cusext/auth"
	"cusext/config"
	"cusext/db"
	"cusext/disagreement"
	"cusext/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("cusext api: %v", err)
	}
}

func run() error {
	cfg, err := config.Load(config.LoadOptions{RequireSecret: true})
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database.DSN, db.PoolOptions{
		Schema:          cfg.Database.Schema,
		MaxConns:        cfg.Database.MaxConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("bootstrap database pool: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, cfg.Database.Schema); err != nil {
		return err
	}

	records := disagreement.NewRepository(pool, logger)
	activities := activity.NewRepository(pool, records, logger)
	server := &Server{
		records:    disagreement.NewService(records),
		activities: activity.NewService(activities),
		auth:       auth.NewService(auth.NewRepository(pool), cfg.Auth.JWTSecret, auth.WithTokenTTL(cfg.Auth.TokenTTL)),
		db:         pool,
		log:        logger,
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      server.routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", slog.String("addr", cfg.HTTP.Addr), slog.String("schema", cfg.Database.Schema))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
