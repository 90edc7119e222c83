package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"cusext/db"
	"cusext/dberr"
	"cusext/disagreement"
	"cusext/logging"
)

var (
	ErrNotFound  = errors.New("activity: not found")
	ErrDuplicate = errors.New("activity: already exists")
)

const programID = "CUSEXT"

// RecordCascader deletes an activity's records on the caller's transaction.
type RecordCascader interface {
	DeleteAllForActivity(ctx context.Context, tx pgx.Tx, activityID string) (int64, error)
}

type Repository struct {
	pool    db.Pool
	records RecordCascader
	tracer  *logging.Tracer
}

func NewRepository(pool db.Pool, records RecordCascader, log *slog.Logger) *Repository {
	return &Repository{pool: pool, records: records, tracer: logging.NewTracer(log, "activity")}
}

func (r *Repository) Create(ctx context.Context, a Activity, actorID string) (Activity, error) {
	const method = "Create"
	const query = `
		INSERT INTO T_MST_CUS_ACT_DT (
			SFDC_ID, ACT_SUBJECT, HOUSEHOLD_ID, REGIST_KBN,
			ENTRY_PG_ID, ENTRY_BY, UPDATE_PG_ID, UPDATE_BY
		) VALUES ($1, $2, $3, $4, '` + programID + `', $5, '` + programID + `', $5)
		RETURNING SFDC_ID, COALESCE(ACT_SUBJECT, ''), COALESCE(HOUSEHOLD_ID, ''), REGIST_KBN,
		          ENTRY_BY, to_char(ENTRY_DT, 'YYYY/MM/DD HH24:MI')
	`
	r.tracer.Enter(ctx, method, a, actorID)
	r.tracer.SQL(ctx, method, query)

	row := r.pool.QueryRow(ctx, query, a.ID, a.Subject, a.HouseholdID, a.Scope.RegistrationCode(), actorID)
	out, err := scanActivity(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			err = fmt.Errorf("%w: %s: %w", ErrDuplicate, a.ID, err)
		}
		return Activity{}, r.fail(ctx, method, "activity: create", err)
	}

	r.tracer.Exit(ctx, method, out)
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id string) (Activity, error) {
	const method = "Get"
	const query = `
		SELECT SFDC_ID, COALESCE(ACT_SUBJECT, ''), COALESCE(HOUSEHOLD_ID, ''), REGIST_KBN,
		       ENTRY_BY, to_char(ENTRY_DT, 'YYYY/MM/DD HH24:MI')
		  FROM T_MST_CUS_ACT_DT
		 WHERE SFDC_ID = $1
	`
	r.tracer.Enter(ctx, method, id)
	r.tracer.SQL(ctx, method, query)

	out, err := scanActivity(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, ErrNotFound
	}
	if err != nil {
		return Activity{}, r.fail(ctx, method, "activity: get", err)
	}

	r.tracer.Exit(ctx, method, out)
	return out, nil
}

// Delete removes the activity and, in the same transaction, every
// non-contract record it owns. Nothing is removed when the activity does not
// exist or any step fails.
func (r *Repository) Delete(ctx context.Context, id string) (DeleteResult, error) {
	const method = "Delete"
	const query = `DELETE FROM T_MST_CUS_ACT_DT WHERE SFDC_ID = $1`
	r.tracer.Enter(ctx, method, id)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return DeleteResult{}, r.fail(ctx, method, "activity: delete begin", err)
	}
	defer tx.Rollback(ctx)

	n, err := r.records.DeleteAllForActivity(ctx, tx, id)
	if err != nil {
		return DeleteResult{}, r.fail(ctx, method, "activity: delete records", err)
	}

	r.tracer.SQL(ctx, method, query)
	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return DeleteResult{}, r.fail(ctx, method, "activity: delete", err)
	}
	if tag.RowsAffected() == 0 {
		return DeleteResult{}, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return DeleteResult{}, r.fail(ctx, method, "activity: delete commit", err)
	}

	res := DeleteResult{ActivityID: id, RecordsDeleted: n}
	r.tracer.Exit(ctx, method, res)
	return res, nil
}

func scanActivity(row pgx.Row) (Activity, error) {
	var (
		a   Activity
		kbn string
	)
	if err := row.Scan(&a.ID, &a.Subject, &a.HouseholdID, &kbn, &a.EntryBy, &a.EntryDate); err != nil {
		return Activity{}, err
	}
	a.Scope = disagreement.ScopeBranch
	if kbn == disagreement.ScopeHeadquarters.RegistrationCode() {
		a.Scope = disagreement.ScopeHeadquarters
	}
	a.ScopeName = a.Scope.String()
	return a, nil
}

func (r *Repository) fail(ctx context.Context, method, op string, err error) error {
	err = dberr.Classify(op, err)
	r.tracer.Error(ctx, method, err)
	return err
}
