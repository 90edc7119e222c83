package disagreement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
)

// ErrInvalidForm signals a form rejected before it reached the database.
var ErrInvalidForm = errors.New("disagreement: invalid form")

// RecordStore is the accessor surface the service depends on.
type RecordStore interface {
	List(ctx context.Context, activityID string, scope Scope) ([]Summary, error)
	GetDetail(ctx context.Context, recordNumber string, scope Scope) (Detail, bool, error)
	Insert(ctx context.Context, form Form, actorID string) (Detail, error)
	Update(ctx context.Context, form Form, actorID string) (Detail, error)
	Delete(ctx context.Context, recordNumber string) error
	DeleteAllForActivity(ctx context.Context, tx pgx.Tx, activityID string) (int64, error)
}

var _ RecordStore = (*Repository)(nil)

// Column widths from the migration.
const (
	maxIDLen         = 64
	maxSubjectLen    = 255
	maxMemoLen       = 2000
	maxCompetitorLen = 100
)

// Service validates and normalizes forms before handing them to the store.
type Service struct {
	store RecordStore
}

func NewService(store RecordStore) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, activityID string, scope Scope) ([]Summary, error) {
	activityID = strings.TrimSpace(activityID)
	if activityID == "" {
		return nil, fmt.Errorf("%w: activity id is required", ErrInvalidForm)
	}
	return s.store.List(ctx, activityID, scope)
}

func (s *Service) Get(ctx context.Context, recordNumber string, scope Scope) (Detail, error) {
	recordNumber = strings.TrimSpace(recordNumber)
	if recordNumber == "" {
		return Detail{}, fmt.Errorf("%w: record number is required", ErrInvalidForm)
	}
	d, found, err := s.store.GetDetail(ctx, recordNumber, scope)
	if err != nil {
		return Detail{}, err
	}
	if !found {
		return Detail{}, ErrNotFound
	}
	return d, nil
}

func (s *Service) Create(ctx context.Context, form Form, actorID string) (Detail, error) {
	form = normalize(form)
	actorID = strings.TrimSpace(actorID)
	if form.ActivityID == "" {
		return Detail{}, fmt.Errorf("%w: activity id is required", ErrInvalidForm)
	}
	if err := validate(form, actorID); err != nil {
		return Detail{}, err
	}
	return s.store.Insert(ctx, form, actorID)
}

func (s *Service) Update(ctx context.Context, form Form, actorID string) (Detail, error) {
	form = normalize(form)
	actorID = strings.TrimSpace(actorID)
	if form.RecordNumber == "" {
		return Detail{}, fmt.Errorf("%w: record number is required", ErrInvalidForm)
	}
	if err := validate(form, actorID); err != nil {
		return Detail{}, err
	}
	return s.store.Update(ctx, form, actorID)
}

func (s *Service) Delete(ctx context.Context, recordNumber string) error {
	recordNumber = strings.TrimSpace(recordNumber)
	if recordNumber == "" {
		return fmt.Errorf("%w: record number is required", ErrInvalidForm)
	}
	return s.store.Delete(ctx, recordNumber)
}

func normalize(f Form) Form {
	f.RecordNumber = strings.TrimSpace(f.RecordNumber)
	f.ActivityID = strings.TrimSpace(f.ActivityID)
	f.Subject = strings.TrimSpace(f.Subject)
	f.HouseholdID = strings.TrimSpace(f.HouseholdID)
	f.NoContact = strings.ToUpper(strings.TrimSpace(f.NoContact))
	f.Distrust = strings.ToUpper(strings.TrimSpace(f.Distrust))
	f.ViaOtherAgent = strings.ToUpper(strings.TrimSpace(f.ViaOtherAgent))
	f.UnderwriteRejected = strings.ToUpper(strings.TrimSpace(f.UnderwriteRejected))
	for i := range f.Competitors {
		f.Competitors[i].Company = strings.TrimSpace(f.Competitors[i].Company)
		f.Competitors[i].Product = strings.TrimSpace(f.Competitors[i].Product)
	}
	return f
}

type fieldLimit struct {
	name  string
	value string
	max   int
}

func validate(f Form, actorID string) error {
	if actorID == "" {
		return fmt.Errorf("%w: operator id is required", ErrInvalidForm)
	}

	flags := [...]struct{ name, value string }{
		{"no_contact", f.NoContact},
		{"distrust", f.Distrust},
		{"via_other_agent", f.ViaOtherAgent},
		{"underwrite_rejected", f.UnderwriteRejected},
	}
	for _, fl := range flags {
		if !isValidFlag(fl.value) {
			return fmt.Errorf("%w: %s must be one of 0, 1, Y, N", ErrInvalidForm, fl.name)
		}
	}

	limits := []fieldLimit{
		{"operator id", actorID, maxIDLen},
		{"activity id", f.ActivityID, maxIDLen},
		{"household id", f.HouseholdID, maxIDLen},
		{"subject", f.Subject, maxSubjectLen},
		{"memo", f.Memo, maxMemoLen},
	}
	for i, c := range f.Competitors {
		limits = append(limits,
			fieldLimit{fmt.Sprintf("competitor %d company", i+1), c.Company, maxCompetitorLen},
			fieldLimit{fmt.Sprintf("competitor %d product", i+1), c.Product, maxCompetitorLen},
		)
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidForm, l.name, l.max)
		}
	}
	return nil
}

func isValidFlag(v string) bool {
	switch v {
	case "", "0", "1", "Y", "N":
		return true
	}
	return false
}
