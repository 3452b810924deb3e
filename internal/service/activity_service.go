package service

import (
	"context"
	"fmt"

	"github.com/gol43/test-moon/internal/domain"
	"github.com/gol43/test-moon/internal/events"
	"github.com/gol43/test-moon/internal/repository"

	"go.uber.org/zap"
)

// ActivityService owns the activity tree and its depth limit.
type ActivityService struct {
	store  repository.Store
	events events.Publisher
	logger *zap.Logger
}

func NewActivityService(store repository.Store, publisher events.Publisher, logger *zap.Logger) *ActivityService {
	return &ActivityService{store: store, events: publisher, logger: logger}
}

func (s *ActivityService) FindActivities(ctx context.Context) ([]*domain.Activity, error) {
	return s.store.Activities().FindAll(ctx)
}

// FindOneActivity returns NotFound when id does not exist.
func (s *ActivityService) FindOneActivity(ctx context.Context, id int64) (*domain.Activity, error) {
	a, err := s.store.Activities().FindOneWithFilter(ctx, repository.Filter{Field: "id", Value: id})
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	if a == nil {
		return nil, notFound("activity", id)
	}
	return a, nil
}

// FindActivitiesByName matches the name exactly.
func (s *ActivityService) FindActivitiesByName(ctx context.Context, name string) ([]*domain.Activity, error) {
	return s.store.Activities().FindAllWithFilter(ctx, repository.Filter{Field: "name", Value: name})
}

func (s *ActivityService) FindActivitiesByIDs(ctx context.Context, ids []int64) ([]*domain.Activity, error) {
	if len(ids) == 0 {
		return []*domain.Activity{}, nil
	}
	return s.store.Activities().FindAllWithFilterIn(ctx, "id", int64Values(uniqueIDs(ids)))
}

// AddActivity creates a root activity, or a child one level below parentID.
func (s *ActivityService) AddActivity(ctx context.Context, name string, parentID *int64) (int64, error) {
	level := 1
	if parentID != nil {
		parent, err := s.FindOneActivity(ctx, *parentID)
		if err != nil {
			return 0, err
		}
		if !parent.CanHaveChildren() {
			return 0, fmt.Errorf("%w: parent activity %d is at level %d, max is %d",
				ErrDepthExceeded, parent.ID, parent.Level, domain.MaxActivityLevel)
		}
		level = parent.ChildLevel()
	}

	id, err := s.store.Activities().AddOne(ctx, repository.Values{
		"name":      name,
		"parent_id": parentID,
		"level":     level,
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Activity created", zap.Int64("activity_id", id), zap.Int("level", level))
	s.publish(ctx, events.New(events.EntityActivity, events.ActionCreated, id))
	return id, nil
}

// UpdateActivity renames an activity. Parent and level never change after creation.
func (s *ActivityService) UpdateActivity(ctx context.Context, id int64, name string) (int64, error) {
	updated, err := s.store.Activities().UpdateOne(ctx, id, repository.Values{"name": name})
	if err != nil {
		return 0, mapNotFound(err, "activity", id)
	}
	s.publish(ctx, events.New(events.EntityActivity, events.ActionUpdated, id))
	return updated, nil
}

// DeleteActivity removes the activity, its subtree and their organization links.
func (s *ActivityService) DeleteActivity(ctx context.Context, id int64) error {
	if err := s.store.Activities().DeleteOne(ctx, id); err != nil {
		return mapNotFound(err, "activity", id)
	}
	s.logger.Info("Activity deleted", zap.Int64("activity_id", id))
	s.publish(ctx, events.New(events.EntityActivity, events.ActionDeleted, id))
	return nil
}

func (s *ActivityService) publish(ctx context.Context, e events.Event) {
	publish(ctx, s.events, s.logger, e)
}
