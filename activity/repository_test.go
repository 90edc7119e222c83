package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"cusext/dberr"
	"cusext/disagreement"
)

func TestDeleteCascadesOnOneTransaction(t *testing.T) {
	tx := &fakeTx{tag: pgconn.NewCommandTag("DELETE 1")}
	records := &fakeCascader{n: 3}
	repo := NewRepository(&fakePool{tx: tx}, records, nil)

	res, err := repo.Delete(context.Background(), "ACT-1")
	require.NoError(t, err)
	require.Equal(t, DeleteResult{ActivityID: "ACT-1", RecordsDeleted: 3}, res)
	require.Same(t, tx, records.tx)
	require.Equal(t, "ACT-1", records.activityID)
	require.True(t, tx.committed)
	require.Len(t, tx.execs, 1)
}

func TestDeleteMissingActivityRollsBack(t *testing.T) {
	tx := &fakeTx{tag: pgconn.NewCommandTag("DELETE 0")}
	repo := NewRepository(&fakePool{tx: tx}, &fakeCascader{}, nil)

	_, err := repo.Delete(context.Background(), "ACT-404")
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, tx.committed)
	require.True(t, tx.rolled)
}

func TestDeleteCascadeFailureKeepsActivity(t *testing.T) {
	tx := &fakeTx{}
	cascadeErr := dberr.Classify("disagreement: delete for activity", &pgconn.PgError{Code: "40P01"})
	repo := NewRepository(&fakePool{tx: tx}, &fakeCascader{err: cascadeErr}, nil)

	_, err := repo.Delete(context.Background(), "ACT-1")
	require.ErrorIs(t, err, dberr.DataAccess)
	require.True(t, dberr.IsTransient(err))
	require.Empty(t, tx.execs, "activity row must not be deleted")
	require.False(t, tx.committed)
	require.True(t, tx.rolled)
}

func TestGetMapsScope(t *testing.T) {
	pool := &fakePool{row: fakeRow{vals: []string{"ACT-9", "subj", "HH", "0", "OPE001", "2026/10/16 10:00"}}}
	repo := NewRepository(pool, &fakeCascader{}, nil)

	a, err := repo.Get(context.Background(), "ACT-9")
	require.NoError(t, err)
	require.Equal(t, disagreement.ScopeHeadquarters, a.Scope)
	require.Equal(t, "hq", a.ScopeName)

	repo = NewRepository(&fakePool{row: fakeRow{err: pgx.ErrNoRows}}, &fakeCascader{}, nil)
	_, err = repo.Get(context.Background(), "ACT-0")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateDuplicate(t *testing.T) {
	pool := &fakePool{row: fakeRow{err: &pgconn.PgError{Code: "23505"}}}
	repo := NewRepository(pool, &fakeCascader{}, nil)

	_, err := repo.Create(context.Background(), Activity{ID: "ACT-1"}, "OPE001")
	require.ErrorIs(t, err, ErrDuplicate)
	require.ErrorIs(t, err, dberr.DataAccess)
}

func TestServiceValidates(t *testing.T) {
	svc := NewService(NewRepository(&fakePool{}, &fakeCascader{}, nil))

	_, err := svc.Create(context.Background(), Activity{ID: "  "}, "OPE001")
	require.ErrorIs(t, err, ErrInvalidActivity)
	_, err = svc.Create(context.Background(), Activity{ID: "ACT-1"}, "")
	require.ErrorIs(t, err, ErrInvalidActivity)
	_, err = svc.Delete(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidActivity)
}

type fakeCascader struct {
	n          int64
	err        error
	tx         pgx.Tx
	activityID string
}

func (f *fakeCascader) DeleteAllForActivity(_ context.Context, tx pgx.Tx, activityID string) (int64, error) {
	f.tx, f.activityID = tx, activityID
	return f.n, f.err
}

type fakeRow struct {
	vals []string
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		*(d.(*string)) = r.vals[i]
	}
	return nil
}

type fakePool struct {
	tx  *fakeTx
	row fakeRow
}

func (f *fakePool) Begin(context.Context) (pgx.Tx, error) {
	return f.tx, nil
}

func (f *fakePool) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("fakePool: exec outside transaction")
}

func (f *fakePool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakePool) QueryRow(context.Context, string, ...any) pgx.Row {
	return f.row
}

type fakeTx struct {
	pgx.Tx
	tag       pgconn.CommandTag
	execs     []string
	rolled    bool
	committed bool
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return f.tag, nil
}
