package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"cusext/activity"
	"cusext/dberr"
	"cusext/disagreement"
)

// Records is the accessor surface the actors drive.
type Records interface {
	List(ctx context.Context, activityID string, scope disagreement.Scope) ([]disagreement.Summary, error)
	Insert(ctx context.Context, form disagreement.Form, actorID string) (disagreement.Detail, error)
	Update(ctx context.Context, form disagreement.Form, actorID string) (disagreement.Detail, error)
	Delete(ctx context.Context, recordNumber string) error
}

// Activities is the parent-activity surface the cascade actor drives.
type Activities interface {
	Create(ctx context.Context, a activity.Activity, actorID string) (activity.Activity, error)
	Delete(ctx context.Context, id string) (activity.DeleteResult, error)
}

// tolerable reports errors the actors expect under contention and chaos.
// Server-reported SQL errors are only tolerated when transient; a killed
// backend surfaces in several non-SQL shapes and those are tolerated.
func tolerable(err error) bool {
	switch {
	case errors.Is(err, disagreement.ErrNotFound), errors.Is(err, context.Canceled):
		return true
	case errors.Is(err, disagreement.ErrOutOfScope),
		errors.Is(err, disagreement.ErrUnknownActivity),
		errors.Is(err, activity.ErrDuplicate):
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return dberr.IsTransient(err)
	}
	return true
}

func loop(ctx context.Context, stop <-chan struct{}, pause func() time.Duration, step func() error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if err := step(); err != nil && !tolerable(err) {
			return err
		}
		time.Sleep(pause())
	}
}

func jitter(base, spread int) func() time.Duration {
	return func() time.Duration {
		return time.Duration(base+rand.Intn(spread)) * time.Millisecond
	}
}

// Inserter keeps adding records to activityID as actorID.
func Inserter(ctx context.Context, recs Records, activityID, actorID string, stop <-chan struct{}) error {
	n := 0
	return loop(ctx, stop, jitter(5, 15), func() error {
		n++
		form := disagreement.Form{
			ActivityID: activityID,
			Subject:    fmt.Sprintf("stress %s #%d", actorID, n),
			NoContact:  "Y",
			Memo:       "inserted",
		}
		form.Competitors[0] = disagreement.Competitor{Company: "CompA", Product: "ProdA"}
		if _, err := recs.Insert(ctx, form, actorID); err != nil {
			return fmt.Errorf("inserter %s: %w", actorID, err)
		}
		return nil
	})
}

// Updater rewrites a random record of activityID as actorID. Records deleted
// underneath it are expected.
func Updater(ctx context.Context, recs Records, activityID, actorID string, stop <-chan struct{}) error {
	return loop(ctx, stop, jitter(10, 30), func() error {
		items, err := recs.List(ctx, activityID, disagreement.ScopeBranch)
		if err != nil || len(items) == 0 {
			return err
		}
		target := items[rand.Intn(len(items))]
		form := disagreement.Form{
			RecordNumber: target.RecordNumber,
			Subject:      "updated by " + actorID,
			Distrust:     "1",
			Memo:         time.Now().Format(time.RFC3339Nano),
		}
		if _, err := recs.Update(ctx, form, actorID); err != nil {
			return fmt.Errorf("updater %s: %w", actorID, err)
		}
		return nil
	})
}

// Deleter removes a random record of activityID now and then.
func Deleter(ctx context.Context, recs Records, activityID string, stop <-chan struct{}) error {
	return loop(ctx, stop, jitter(40, 60), func() error {
		items, err := recs.List(ctx, activityID, disagreement.ScopeBranch)
		if err != nil || len(items) == 0 {
			return err
		}
		return recs.Delete(ctx, items[rand.Intn(len(items))].RecordNumber)
	})
}

// Cascader creates short-lived activities, attaches records, and deletes the
// activity, exercising the transactional cascade.
func Cascader(ctx context.Context, acts Activities, recs Records, actorID string, stop <-chan struct{}) error {
	return loop(ctx, stop, jitter(30, 50), func() error {
		id := "ACT-TMP-" + uuid.NewString()
		if _, err := acts.Create(ctx, activity.Activity{ID: id, Subject: "temporary"}, actorID); err != nil {
			return fmt.Errorf("cascader create: %w", err)
		}
		for i := 0; i < 1+rand.Intn(3); i++ {
			if _, err := recs.Insert(ctx, disagreement.Form{ActivityID: id}, actorID); err != nil {
				return fmt.Errorf("cascader insert: %w", err)
			}
		}
		if _, err := acts.Delete(ctx, id); err != nil {
			return fmt.Errorf("cascader delete: %w", err)
		}
		return nil
	})
}
