package service

import (
	"context"
	"fmt"
	"math"

	"github.com/gol43/test-moon/internal/domain"
	"github.com/gol43/test-moon/internal/events"
	"github.com/gol43/test-moon/internal/repository"

	"go.uber.org/zap"
)

// OrganizationInput is the writable shape of an organization.
// Repeated activity ids are collapsed; a nil Phones is stored as NULL.
type OrganizationInput struct {
	Name        string
	Phones      []string
	BuildingID  int64
	ActivityIDs []int64
}

func (in OrganizationInput) values() repository.Values {
	var phones domain.Phones
	if in.Phones != nil {
		phones = append(domain.Phones{}, in.Phones...)
	}
	return repository.Values{
		"name":        in.Name,
		"phones":      phones,
		"building_id": in.BuildingID,
	}
}

// OrganizationService composes organizations with their building and activity links.
// Create, update and delete each run in one transaction.
type OrganizationService struct {
	store  repository.Store
	events events.Publisher
	logger *zap.Logger
}

func NewOrganizationService(store repository.Store, publisher events.Publisher, logger *zap.Logger) *OrganizationService {
	return &OrganizationService{store: store, events: publisher, logger: logger}
}

func (s *OrganizationService) FindOrganizations(ctx context.Context) ([]*domain.Organization, error) {
	return s.store.Organizations().FindAllWithRelations(ctx)
}

// FindOneOrganization looks an organization up by id (any integer type) or by exact name (string).
func (s *OrganizationService) FindOneOrganization(ctx context.Context, key any) (*domain.Organization, error) {
	f, err := organizationKeyFilter(key)
	if err != nil {
		return nil, err
	}

	org, err := s.store.Organizations().FindOneWithRelations(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if org == nil {
		return nil, notFound("organization", key)
	}
	return org, nil
}

// organizationKeyFilter maps any integer kind to an id filter and a string to a name filter.
func organizationKeyFilter(key any) (repository.Filter, error) {
	byID := func(id int64) (repository.Filter, error) {
		return repository.Filter{Field: "id", Value: id}, nil
	}
	switch k := key.(type) {
	case int:
		return byID(int64(k))
	case int8:
		return byID(int64(k))
	case int16:
		return byID(int64(k))
	case int32:
		return byID(int64(k))
	case int64:
		return byID(k)
	case uint:
		return uintID(uint64(k))
	case uint8:
		return byID(int64(k))
	case uint16:
		return byID(int64(k))
	case uint32:
		return byID(int64(k))
	case uint64:
		return uintID(k)
	case string:
		return repository.Filter{Field: "name", Value: k}, nil
	default:
		return repository.Filter{}, fmt.Errorf("%w: unsupported key type %T", ErrInvalidFilter, key)
	}
}

func uintID(id uint64) (repository.Filter, error) {
	if id > math.MaxInt64 {
		return repository.Filter{}, fmt.Errorf("%w: id %d out of range", ErrInvalidFilter, id)
	}
	return repository.Filter{Field: "id", Value: int64(id)}, nil
}

func (s *OrganizationService) FindOrganizationsByBuildingID(ctx context.Context, buildingID int64) ([]*domain.Organization, error) {
	return s.store.Organizations().FindByBuildingIDsWithRelations(ctx, []int64{buildingID})
}

// FindOrganizationsByActivityIDs returns organizations holding any of ids, each once.
func (s *OrganizationService) FindOrganizationsByActivityIDs(ctx context.Context, ids []int64) ([]*domain.Organization, error) {
	return s.store.Organizations().FindByActivityIDs(ctx, uniqueIDs(ids))
}

func (s *OrganizationService) FindOrganizationsInBuildings(ctx context.Context, buildingIDs []int64) ([]*domain.Organization, error) {
	return s.store.Organizations().FindByBuildingIDsWithRelations(ctx, uniqueIDs(buildingIDs))
}

// FindOrganizationsInBox returns organizations whose building lies inside box, edges included.
func (s *OrganizationService) FindOrganizationsInBox(ctx context.Context, box domain.BoundingBox) ([]*domain.Organization, error) {
	if box.LatMin > box.LatMax || box.LonMin > box.LonMax {
		return []*domain.Organization{}, nil
	}
	buildings, err := s.store.Buildings().FindInBox(ctx, box)
	if err != nil {
		return nil, fmt.Errorf("failed to find buildings in box: %w", err)
	}
	ids := make([]int64, 0, len(buildings))
	for _, b := range buildings {
		ids = append(ids, b.ID)
	}
	return s.FindOrganizationsInBuildings(ctx, ids)
}

// FindOrganizationsByActivityName matches activities whose name equals name exactly.
// Child activities of a match are not searched.
func (s *OrganizationService) FindOrganizationsByActivityName(ctx context.Context, name string) ([]*domain.Organization, error) {
	activities, err := s.store.Activities().FindAllWithFilter(ctx, repository.Filter{Field: "name", Value: name})
	if err != nil {
		return nil, fmt.Errorf("failed to find activities: %w", err)
	}
	ids := make([]int64, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.ID)
	}
	return s.FindOrganizationsByActivityIDs(ctx, ids)
}

// CheckReferences verifies that the building and every activity exist.
// Missing ids are reported together in a *ReferenceError.
func (s *OrganizationService) CheckReferences(ctx context.Context, buildingID int64, activityIDs []int64) error {
	return checkReferences(ctx, s.store, buildingID, activityIDs)
}

func checkReferences(ctx context.Context, st repository.Store, buildingID int64, activityIDs []int64) error {
	refErr := &ReferenceError{}

	b, err := st.Buildings().FindOneWithFilter(ctx, repository.Filter{Field: "id", Value: buildingID})
	if err != nil {
		return fmt.Errorf("failed to check building: %w", err)
	}
	if b == nil {
		refErr.BuildingID = buildingID
	}

	ids := uniqueIDs(activityIDs)
	if len(ids) > 0 {
		found, err := st.Activities().FindAllWithFilterIn(ctx, "id", int64Values(ids))
		if err != nil {
			return fmt.Errorf("failed to check activities: %w", err)
		}
		have := make(map[int64]bool, len(found))
		for _, a := range found {
			have[a.ID] = true
		}
		for _, id := range ids {
			if !have[id] {
				refErr.ActivityIDs = append(refErr.ActivityIDs, id)
			}
		}
	}

	if refErr.BuildingID != 0 || len(refErr.ActivityIDs) > 0 {
		return refErr
	}
	return nil
}

// AddOrganizationWithActivities inserts the organization and one link per activity.
// Nothing is written unless every step succeeds.
func (s *OrganizationService) AddOrganizationWithActivities(ctx context.Context, in OrganizationInput) (int64, error) {
	var id int64
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := checkReferences(ctx, tx, in.BuildingID, in.ActivityIDs); err != nil {
			return err
		}
		var err error
		id, err = tx.Organizations().AddOne(ctx, in.values())
		if err != nil {
			return err
		}
		return linkActivities(ctx, tx, id, in.ActivityIDs)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Organization created",
		zap.Int64("organization_id", id),
		zap.Int("activities", len(uniqueIDs(in.ActivityIDs))),
	)
	publish(ctx, s.events, s.logger, events.New(events.EntityOrganization, events.ActionCreated, id))
	return id, nil
}

// UpdateOrganization replaces the scalar fields and the full activity set, then
// returns the organization as stored.
func (s *OrganizationService) UpdateOrganization(ctx context.Context, id int64, in OrganizationInput) (*domain.Organization, error) {
	var org *domain.Organization
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := checkReferences(ctx, tx, in.BuildingID, in.ActivityIDs); err != nil {
			return err
		}
		if _, err := tx.Organizations().UpdateOne(ctx, id, in.values()); err != nil {
			return mapNotFound(err, "organization", id)
		}
		if _, err := tx.Organizations().DeleteRelations(ctx, repository.OrganizationActivities,
			repository.Filter{Field: "organization_id", Value: id}); err != nil {
			return err
		}
		if err := linkActivities(ctx, tx, id, in.ActivityIDs); err != nil {
			return err
		}
		var err error
		org, err = tx.Organizations().FindOneWithRelations(ctx, repository.Filter{Field: "id", Value: id})
		return err
	})
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, notFound("organization", id)
	}

	s.logger.Info("Organization updated", zap.Int64("organization_id", id))
	publish(ctx, s.events, s.logger, events.New(events.EntityOrganization, events.ActionUpdated, id))
	return org, nil
}

// DeleteOrganization removes the links and then the organization.
func (s *OrganizationService) DeleteOrganization(ctx context.Context, id int64) error {
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Organizations().DeleteRelations(ctx, repository.OrganizationActivities,
			repository.Filter{Field: "organization_id", Value: id}); err != nil {
			return err
		}
		return mapNotFound(tx.Organizations().DeleteOne(ctx, id), "organization", id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Organization deleted", zap.Int64("organization_id", id))
	publish(ctx, s.events, s.logger, events.New(events.EntityOrganization, events.ActionDeleted, id))
	return nil
}

func linkActivities(ctx context.Context, tx repository.Store, orgID int64, activityIDs []int64) error {
	for _, activityID := range uniqueIDs(activityIDs) {
		err := tx.Organizations().AddRelation(ctx, repository.OrganizationActivities, repository.Values{
			"organization_id": orgID,
			"activity_id":     activityID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
