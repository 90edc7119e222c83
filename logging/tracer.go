package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"cusext/dberr"
)

// Tracer is the per-component logger used by repositories: method entry and
// exit dumps and SQL text at debug level, classified errors at error level.
type Tracer struct {
	log *slog.Logger
}

// NewTracer binds log to component. A nil log discards everything.
func NewTracer(log *slog.Logger, component string) *Tracer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tracer{log: log.With(slog.String("component", component))}
}

// DebugEnabled reports whether argument and result dumps will be written.
func (t *Tracer) DebugEnabled(ctx context.Context) bool {
	return t.log.Enabled(ctx, slog.LevelDebug)
}

func (t *Tracer) Enter(ctx context.Context, method string, args ...any) {
	if !t.DebugEnabled(ctx) {
		return
	}
	t.log.DebugContext(ctx, "method start", slog.String("method", method), slog.Any("args", args))
}

func (t *Tracer) Exit(ctx context.Context, method string, results ...any) {
	if !t.DebugEnabled(ctx) {
		return
	}
	t.log.DebugContext(ctx, "method end", slog.String("method", method), slog.Any("results", results))
}

// SQL logs statement text with whitespace collapsed onto one line.
func (t *Tracer) SQL(ctx context.Context, method, sql string) {
	if !t.DebugEnabled(ctx) {
		return
	}
	t.log.DebugContext(ctx, "sql", slog.String("method", method), slog.String("sql", strings.Join(strings.Fields(sql), " ")))
}

// Error logs err under its dberr classification code.
func (t *Tracer) Error(ctx context.Context, method string, err error) {
	if err == nil {
		return
	}
	t.log.ErrorContext(ctx, "data access failed",
		slog.String("method", method),
		slog.String("code", string(dberr.CodeOf(err))),
		slog.Bool("transient", dberr.IsTransient(err)),
		slog.Any("error", err),
	)
}

// Logger exposes the underlying component logger.
func (t *Tracer) Logger() *slog.Logger {
	return t.log
}
