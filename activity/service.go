package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidActivity = errors.New("activity: invalid activity")

type Store interface {
	Create(ctx context.Context, a Activity, actorID string) (Activity, error)
	Get(ctx context.Context, id string) (Activity, error)
	Delete(ctx context.Context, id string) (DeleteResult, error)
}

var _ Store = (*Repository)(nil)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, a Activity, actorID string) (Activity, error) {
	a.ID = strings.TrimSpace(a.ID)
	a.Subject = strings.TrimSpace(a.Subject)
	a.HouseholdID = strings.TrimSpace(a.HouseholdID)
	actorID = strings.TrimSpace(actorID)
	if a.ID == "" || len(a.ID) > 64 {
		return Activity{}, fmt.Errorf("%w: id must be 1-64 characters", ErrInvalidActivity)
	}
	if actorID == "" {
		return Activity{}, fmt.Errorf("%w: operator id is required", ErrInvalidActivity)
	}
	return s.store.Create(ctx, a, actorID)
}

func (s *Service) Get(ctx context.Context, id string) (Activity, error) {
	return s.store.Get(ctx, strings.TrimSpace(id))
}

func (s *Service) Delete(ctx context.Context, id string) (DeleteResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return DeleteResult{}, fmt.Errorf("%w: id is required", ErrInvalidActivity)
	}
	return s.store.Delete(ctx, id)
}
