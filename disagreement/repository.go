package disagreement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"cusext/db"
	"cusext/dberr"
	"cusext/logging"
)

var (
	ErrNotFound        = errors.New("disagreement: not found")
	ErrUnknownActivity = errors.New("disagreement: unknown activity")
	// ErrOutOfScope is returned when a write succeeded against a record the
	// form's scope cannot read back; the write is rolled back.
	ErrOutOfScope = errors.New("disagreement: record outside requested scope")
)

// Repository is the record store accessor for T_MST_CUS_LDS_AGRMNT_INFO_DT.
// Each call borrows its own connection from pool, except DeleteAllForActivity
// which runs on the caller's transaction.
type Repository struct {
	pool   db.Pool
	tracer *logging.Tracer
}

func NewRepository(pool db.Pool, log *slog.Logger) *Repository {
	return &Repository{pool: pool, tracer: logging.NewTracer(log, "disagreement")}
}

func (r *Repository) List(ctx context.Context, activityID string, scope Scope) ([]Summary, error) {
	const method = "List"
	r.tracer.Enter(ctx, method, activityID, scope.String())

	query := queryFor(false, scope)
	r.tracer.SQL(ctx, method, query)

	rows, err := r.pool.Query(ctx, query, activityID)
	if err != nil {
		return nil, r.fail(ctx, method, "disagreement: list", err)
	}
	defer rows.Close()

	out := make([]Summary, 0, 8)
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.RecordNumber, &s.Competitor.Company, &s.Competitor.Product, &s.Memo, &s.EntryDate, &s.UpdateDate); err != nil {
			return nil, r.fail(ctx, method, "disagreement: scan", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, r.fail(ctx, method, "disagreement: iterate", err)
	}

	r.tracer.Exit(ctx, method, len(out))
	return out, nil
}

// GetDetail returns found == false, without an error, when no record with
// recordNumber is visible in scope.
func (r *Repository) GetDetail(ctx context.Context, recordNumber string, scope Scope) (Detail, bool, error) {
	const method = "GetDetail"
	r.tracer.Enter(ctx, method, recordNumber, scope.String())

	d, found, err := r.getDetail(ctx, r.pool, method, recordNumber, scope)
	if err != nil {
		return Detail{}, false, r.fail(ctx, method, "disagreement: get detail", err)
	}

	r.tracer.Exit(ctx, method, found, d)
	return d, found, nil
}

func (r *Repository) getDetail(ctx context.Context, q db.DBTX, method, recordNumber string, scope Scope) (Detail, bool, error) {
	query := queryFor(true, scope)
	r.tracer.SQL(ctx, method, query)

	var d Detail
	err := q.QueryRow(ctx, query, recordNumber).Scan(
		&d.RecordNumber, &d.ActivityID, &d.Subject, &d.ActivitySubject, &d.HouseholdID,
		&d.NoContact, &d.Distrust, &d.ViaOtherAgent, &d.UnderwriteRejected, &d.Memo,
		&d.Competitors[0].Company, &d.Competitors[0].Product,
		&d.Competitors[1].Company, &d.Competitors[1].Product,
		&d.Competitors[2].Company, &d.Competitors[2].Product,
		&d.EntryProgramID, &d.EntryDate, &d.EntryBy,
		&d.UpdateProgramID, &d.UpdateDate, &d.UpdateBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Detail{}, false, nil
	}
	if err != nil {
		return Detail{}, false, err
	}
	return d, true, nil
}

// Insert allocates both keys from their sequences and returns the stored row
// as read back through the detail query in form.Scope.
func (r *Repository) Insert(ctx context.Context, form Form, actorID string) (Detail, error) {
	const method = "Insert"
	r.tracer.Enter(ctx, method, form, actorID)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Detail{}, r.fail(ctx, method, "disagreement: insert begin", err)
	}
	defer tx.Rollback(ctx)

	r.tracer.SQL(ctx, method, insertQuery)
	var recordNumber string
	err = tx.QueryRow(ctx, insertQuery,
		form.ActivityID, form.Subject, form.HouseholdID,
		form.NoContact, form.Distrust, form.ViaOtherAgent, form.UnderwriteRejected, form.Memo,
		form.Competitors[0].Company, form.Competitors[0].Product,
		form.Competitors[1].Company, form.Competitors[1].Product,
		form.Competitors[2].Company, form.Competitors[2].Product,
		actorID,
	).Scan(&recordNumber)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			err = fmt.Errorf("%w %q: %w", ErrUnknownActivity, form.ActivityID, err)
		}
		return Detail{}, r.fail(ctx, method, "disagreement: insert", err)
	}

	d, err := r.readBack(ctx, tx, method, recordNumber, form.Scope)
	if err != nil {
		return Detail{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Detail{}, r.fail(ctx, method, "disagreement: insert commit", err)
	}

	r.tracer.Exit(ctx, method, d)
	return d, nil
}

// Update rewrites the mutable columns of form.RecordNumber. Entry metadata is
// never touched. ErrNotFound when the record does not exist.
func (r *Repository) Update(ctx context.Context, form Form, actorID string) (Detail, error) {
	const method = "Update"
	r.tracer.Enter(ctx, method, form, actorID)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Detail{}, r.fail(ctx, method, "disagreement: update begin", err)
	}
	defer tx.Rollback(ctx)

	r.tracer.SQL(ctx, method, updateQuery)
	tag, err := tx.Exec(ctx, updateQuery,
		form.RecordNumber, form.Subject,
		form.NoContact, form.Distrust, form.ViaOtherAgent, form.UnderwriteRejected, form.Memo,
		form.Competitors[0].Company, form.Competitors[0].Product,
		form.Competitors[1].Company, form.Competitors[1].Product,
		form.Competitors[2].Company, form.Competitors[2].Product,
		actorID,
	)
	if err != nil {
		return Detail{}, r.fail(ctx, method, "disagreement: update", err)
	}
	if tag.RowsAffected() == 0 {
		return Detail{}, ErrNotFound
	}

	d, err := r.readBack(ctx, tx, method, form.RecordNumber, form.Scope)
	if err != nil {
		return Detail{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Detail{}, r.fail(ctx, method, "disagreement: update commit", err)
	}

	r.tracer.Exit(ctx, method, d)
	return d, nil
}

func (r *Repository) readBack(ctx context.Context, tx pgx.Tx, method, recordNumber string, scope Scope) (Detail, error) {
	d, found, err := r.getDetail(ctx, tx, method, recordNumber, scope)
	if err != nil {
		return Detail{}, r.fail(ctx, method, "disagreement: read back", err)
	}
	if !found {
		return Detail{}, fmt.Errorf("%w: %s in %s scope", ErrOutOfScope, recordNumber, scope)
	}
	return d, nil
}

// Delete removes recordNumber. A missing record is not an error.
func (r *Repository) Delete(ctx context.Context, recordNumber string) error {
	const method = "Delete"
	r.tracer.Enter(ctx, method, recordNumber)
	r.tracer.SQL(ctx, method, deleteQuery)

	tag, err := r.pool.Exec(ctx, deleteQuery, recordNumber)
	if err != nil {
		return r.fail(ctx, method, "disagreement: delete", err)
	}

	r.tracer.Exit(ctx, method, tag.RowsAffected())
	return nil
}

// DeleteAllForActivity removes every record owned by activityID on tx. It
// never commits or rolls back; the caller owns the transaction.
func (r *Repository) DeleteAllForActivity(ctx context.Context, tx pgx.Tx, activityID string) (int64, error) {
	const method = "DeleteAllForActivity"
	r.tracer.Enter(ctx, method, activityID)
	r.tracer.SQL(ctx, method, deleteForActivityQuery)

	tag, err := tx.Exec(ctx, deleteForActivityQuery, activityID)
	if err != nil {
		return 0, r.fail(ctx, method, "disagreement: delete for activity", err)
	}

	r.tracer.Exit(ctx, method, tag.RowsAffected())
	return tag.RowsAffected(), nil
}

func (r *Repository) fail(ctx context.Context, method, op string, err error) error {
	err = dberr.Classify(op, err)
	r.tracer.Error(ctx, method, err)
	return err
}
