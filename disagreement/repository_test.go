package disagreement

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"cusext/dberr"
)

func TestListEmptyIsNotAnError(t *testing.T) {
	rows := &fakeRows{}
	pool := &fakePool{rows: rows}
	repo := NewRepository(pool, nil)

	got, err := repo.List(context.Background(), "ACT-404", ScopeBranch)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
	require.True(t, rows.closed, "rows must be closed")
	require.Equal(t, []string{listBranchQuery}, pool.queries)
}

func TestListMapsSummaries(t *testing.T) {
	rows := &fakeRows{rows: [][]string{
		{"EN1", "CompA", "ProdA", "m1", "2026/10/01", "2026/10/02"},
		{"EN2", "", "", "", "2026/10/03", "2026/10/03"},
	}}
	pool := &fakePool{rows: rows}
	repo := NewRepository(pool, nil)

	got, err := repo.List(context.Background(), "ACT-1", ScopeHeadquarters)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, Summary{
		RecordNumber: "EN1",
		Competitor:   Competitor{Company: "CompA", Product: "ProdA"},
		Memo:         "m1",
		EntryDate:    "2026/10/01",
		UpdateDate:   "2026/10/02",
	}, got[0])
	require.Equal(t, []string{listHeadquarterQuery}, pool.queries)
}

func TestListClassifiesFailures(t *testing.T) {
	pool := &fakePool{queryErr: &pgconn.PgError{Code: "08006"}}
	repo := NewRepository(pool, nil)

	_, err := repo.List(context.Background(), "ACT-1", ScopeBranch)
	require.ErrorIs(t, err, dberr.DataAccess)
	require.True(t, dberr.IsTransient(err))

	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)

	rows := &fakeRows{err: errors.New("decode")}
	repo = NewRepository(&fakePool{rows: rows}, nil)
	_, err = repo.List(context.Background(), "ACT-1", ScopeBranch)
	require.ErrorIs(t, err, dberr.Runtime)
	require.True(t, rows.closed)
}

func TestGetDetailNotFound(t *testing.T) {
	repo := NewRepository(&fakePool{row: fakeRow{err: errNoRows()}}, nil)

	d, found, err := repo.GetDetail(context.Background(), "EN999", ScopeBranch)
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, Detail{}, d)
}

func TestGetDetailMapsColumns(t *testing.T) {
	pool := &fakePool{row: detailRow("EN7")}
	repo := NewRepository(pool, nil)

	d, found, err := repo.GetDetail(context.Background(), "EN7", ScopeBranch)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "EN7", d.RecordNumber)
	require.Equal(t, "s1", d.Subject)
	require.Equal(t, "activity subject", d.ActivitySubject)
	require.Equal(t, Competitor{Company: "CompA", Product: "ProdA"}, d.Competitors[0])
	require.Equal(t, "OPE001", d.EntryBy)
	require.Equal(t, []string{detailBranchQuery}, pool.queries)
}

func TestInsertCommitsAfterReadBack(t *testing.T) {
	tx := &fakeTx{rows: []fakeRow{{vals: []string{"EN42"}}, detailRow("EN42")}}
	repo := NewRepository(&fakePool{tx: tx}, nil)

	d, err := repo.Insert(context.Background(), Form{ActivityID: "ACT-1", Subject: "s1"}, "OPE001")
	require.NoError(t, err)
	require.Equal(t, "EN42", d.RecordNumber)
	require.True(t, tx.committed)
	require.Equal(t, []string{insertQuery, detailBranchQuery}, tx.queries)
}

func TestInsertUnknownActivity(t *testing.T) {
	tx := &fakeTx{rows: []fakeRow{{err: &pgconn.PgError{Code: "23503"}}}}
	repo := NewRepository(&fakePool{tx: tx}, nil)

	_, err := repo.Insert(context.Background(), Form{ActivityID: "ACT-X"}, "OPE001")
	require.ErrorIs(t, err, ErrUnknownActivity)
	require.ErrorIs(t, err, dberr.DataAccess)
	require.False(t, tx.committed)
	require.True(t, tx.rolled)
}

func TestInsertOutOfScopeRollsBack(t *testing.T) {
	tx := &fakeTx{rows: []fakeRow{{vals: []string{"EN43"}}}}
	repo := NewRepository(&fakePool{tx: tx}, nil)

	_, err := repo.Insert(context.Background(), Form{ActivityID: "ACT-1", Scope: ScopeHeadquarters}, "OPE001")
	require.ErrorIs(t, err, ErrOutOfScope)
	require.False(t, tx.committed)
	require.True(t, tx.rolled)
	require.Equal(t, detailHeadquarterQuery, tx.queries[1])
}

func TestInsertBeginFailure(t *testing.T) {
	repo := NewRepository(&fakePool{beginErr: &pgconn.PgError{Code: "57P01"}}, nil)

	_, err := repo.Insert(context.Background(), Form{ActivityID: "ACT-1"}, "OPE001")
	require.ErrorIs(t, err, dberr.DataAccess)
	require.True(t, dberr.IsTransient(err))
}

func TestUpdateMissingRecord(t *testing.T) {
	tx := &fakeTx{execTag: pgconn.NewCommandTag("UPDATE 0")}
	repo := NewRepository(&fakePool{tx: tx}, nil)

	_, err := repo.Update(context.Background(), Form{RecordNumber: "EN404"}, "OPE001")
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, tx.committed)
	require.True(t, tx.rolled)
}

func TestUpdateRewritesAndReadsBack(t *testing.T) {
	tx := &fakeTx{execTag: pgconn.NewCommandTag("UPDATE 1"), rows: []fakeRow{detailRow("EN5")}}
	repo := NewRepository(&fakePool{tx: tx}, nil)

	form := Form{RecordNumber: "EN5", Subject: "s2", Memo: "m2"}
	form.Competitors[2] = Competitor{Company: "CompC", Product: "ProdC"}
	_, err := repo.Update(context.Background(), form, "OPE002")
	require.NoError(t, err)
	require.True(t, tx.committed)

	require.Len(t, tx.execs, 1)
	args := tx.execs[0].args
	require.Len(t, args, 14)
	require.Equal(t, "EN5", args[0])
	require.Equal(t, "s2", args[1])
	require.Equal(t, "m2", args[6])
	require.Equal(t, "CompC", args[11])
	require.Equal(t, "ProdC", args[12])
	require.Equal(t, "OPE002", args[13])
}

func TestDeleteMissingIsNoop(t *testing.T) {
	pool := &fakePool{execTag: pgconn.NewCommandTag("DELETE 0")}
	repo := NewRepository(pool, nil)

	require.NoError(t, repo.Delete(context.Background(), "EN404"))
	require.Equal(t, []string{deleteQuery}, pool.queries)
}

func TestDeleteAllForActivityUsesCallerTx(t *testing.T) {
	tx := &fakeTx{execTag: pgconn.NewCommandTag("DELETE 3")}
	pool := &fakePool{}
	repo := NewRepository(pool, nil)

	n, err := repo.DeleteAllForActivity(context.Background(), tx, "ACT-1")
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	require.Empty(t, pool.queries, "pool must not be touched")
	require.False(t, tx.committed)
	require.False(t, tx.rolled)
	require.Equal(t, deleteForActivityQuery, tx.execs[0].sql)
	require.Equal(t, []any{"ACT-1"}, tx.execs[0].args)
}

func TestDeleteAllForActivityFailure(t *testing.T) {
	tx := &fakeTx{execErr: &pgconn.PgError{Code: "42P01"}}
	repo := NewRepository(&fakePool{}, nil)

	_, err := repo.DeleteAllForActivity(context.Background(), tx, "ACT-1")
	require.ErrorIs(t, err, dberr.DataAccess)
	require.False(t, dberr.IsTransient(err))
}
