// Package dberr classifies failures raised by the Postgres data-access layer.
//
// Every repository error is wrapped in an *Error carrying one of two codes:
// CodeDataAccess for anything raised by the database or the connection to it,
// and CodeRuntime for everything else. The original cause is kept so callers
// can still use errors.Is and errors.As against pgx and pgconn values.
package dberr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Code is the log/error classification key.
type Code string

const (
	// CodeDataAccess marks connectivity, constraint, and SQL failures.
	CodeDataAccess Code = "E0002"
	// CodeRuntime marks every other failure surfaced by a repository.
	CodeRuntime Code = "E0003"
)

// Error is a classified data-access failure.
type Error struct {
	Code      Code
	Op        string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, so errors.Is(err, dberr.DataAccess)
// works without comparing causes.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Code == e.Code && t.Op == "" && t.Err == nil
	}
	return false
}

var (
	// DataAccess matches any *Error with CodeDataAccess.
	DataAccess = &Error{Code: CodeDataAccess}
	// Runtime matches any *Error with CodeRuntime.
	Runtime = &Error{Code: CodeRuntime}
)

// Classify wraps err for op. A nil err yields nil, and an err that is already
// an *Error is returned unchanged so nested repository calls classify once.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}

	code := CodeRuntime
	if isDataAccess(err) {
		code = CodeDataAccess
	}
	return &Error{
		Code:      code,
		Op:        op,
		Transient: IsTransient(err),
		Err:       err,
	}
}

// CodeOf reports the classification code for err, CodeRuntime when err was
// never classified.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if isDataAccess(err) {
		return CodeDataAccess
	}
	return CodeRuntime
}

// IsTransient reports whether err looks like a connectivity or contention
// failure that a caller may reasonably retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) && e.Transient {
		return true
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientSQLState(pgErr.Code)
	}
	return false
}

func transientSQLState(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"): // connection exception
		return true
	case strings.HasPrefix(code, "53"): // insufficient resources
		return true
	case strings.HasPrefix(code, "57P0"): // admin/crash shutdown, cannot connect now
		return true
	case code == "40001", code == "40P01":
		return true
	}
	return false
}

func isDataAccess(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pgconn.Timeout(err)
	}
	return errors.Is(err, pgx.ErrTxClosed) ||
		errors.Is(err, pgx.ErrTxCommitRollback) ||
		pgconn.SafeToRetry(err)
}
