package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"cusext/db"
	"cusext/dberr"
)

var (
	// ErrOperatorNotFound signals that the operator does not exist.
	ErrOperatorNotFound = errors.New("auth: operator not found")
	// ErrDuplicateOperator signals that the operator id is already registered.
	ErrDuplicateOperator = errors.New("auth: operator already exists")
)

// Repository handles data access for authentication.
type Repository interface {
	CreateOperator(ctx context.Context, params CreateOperatorParams) (Operator, error)
	GetOperator(ctx context.Context, operatorID string) (Operator, error)
}

// CreateOperatorParams contains write parameters for creating operators.
type CreateOperatorParams struct {
	ID           string
	Name         string
	PasswordHash string
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository creates a PostgreSQL-backed auth repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

// CreateOperator inserts a new operator with hashed password.
func (r *PGRepository) CreateOperator(ctx context.Context, params CreateOperatorParams) (Operator, error) {
	const insertSQL = `
		INSERT INTO T_MST_CUS_OPE (OPE_ID, OPE_NAME, PASSWORD_HASH)
		VALUES ($1, $2, $3)
		RETURNING OPE_ID, OPE_NAME, PASSWORD_HASH, ENTRY_DT
	`

	op, err := scanOperator(r.db.QueryRow(ctx, insertSQL, params.ID, params.Name, params.PasswordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Operator{}, ErrDuplicateOperator
		}
		return Operator{}, dberr.Classify("auth: create operator", err)
	}

	return op, nil
}

// GetOperator retrieves an operator by id.
func (r *PGRepository) GetOperator(ctx context.Context, operatorID string) (Operator, error) {
	const selectSQL = `
		SELECT OPE_ID, OPE_NAME, PASSWORD_HASH, ENTRY_DT
		FROM T_MST_CUS_OPE
		WHERE OPE_ID = $1
	`

	op, err := scanOperator(r.db.QueryRow(ctx, selectSQL, operatorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Operator{}, ErrOperatorNotFound
		}
		return Operator{}, dberr.Classify("auth: get operator", fmt.Errorf("%s: %w", operatorID, err))
	}

	return op, nil
}

func scanOperator(row pgx.Row) (Operator, error) {
	var op Operator
	if err := row.Scan(&op.ID, &op.Name, &op.PasswordHash, &op.CreatedAt); err != nil {
		return Operator{}, err
	}
	return op, nil
}
