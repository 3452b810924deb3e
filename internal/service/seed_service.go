package service

import (
	"context"
	"fmt"

	"github.com/gol43/test-moon/internal/domain"
	"github.com/gol43/test-moon/internal/events"
	"github.com/gol43/test-moon/internal/repository"

	"go.uber.org/zap"
)

type seedActivity struct {
	name   string
	parent string // name of an earlier seedActivity, empty for roots
}

type seedOrganization struct {
	name       string
	phones     []string
	building   int // index into seedBuildings
	activities []string
}

var seedBuildings = []domain.Building{
	{Address: "ул. Ленина, д.1", Coordinates: domain.Coordinates{Lat: 54.7104, Lon: 20.5110}},
	{Address: "ул. Пушкина, д.5", Coordinates: domain.Coordinates{Lat: 54.7200, Lon: 20.5200}},
	{Address: "ул. Гагарина, д.10", Coordinates: domain.Coordinates{Lat: 54.7300, Lon: 20.5300}},
}

var seedActivities = []seedActivity{
	{name: "IT Services"},
	{name: "Consulting"},
	{name: "Web Development", parent: "IT Services"},
	{name: "Marketing"},
	{name: "Design", parent: "Marketing"},
	{name: "Finance"},
}

var seedOrganizations = []seedOrganization{
	{name: "Орг1", phones: []string{"+70001112233"}, building: 0, activities: []string{"IT Services", "Web Development"}},
	{name: "Орг2", phones: []string{"+70004445566"}, building: 1, activities: []string{"Consulting"}},
	{name: "Орг3", phones: []string{"+70007778899"}, building: 2, activities: []string{"Marketing", "Design", "Finance"}},
}

// SeedService resets the directory to the demo data set.
type SeedService struct {
	store     repository.Store
	buildings *BuildingService
	events    events.Publisher
	logger    *zap.Logger
}

func NewSeedService(store repository.Store, buildings *BuildingService, publisher events.Publisher, logger *zap.Logger) *SeedService {
	return &SeedService{store: store, buildings: buildings, events: publisher, logger: logger}
}

// Seed wipes every table and loads the demo buildings, activities and organizations.
func (s *SeedService) Seed(ctx context.Context) error {
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Reset(ctx); err != nil {
			return err
		}

		buildingIDs := make([]int64, len(seedBuildings))
		for i, b := range seedBuildings {
			id, err := tx.Buildings().AddOne(ctx, repository.Values{"address": b.Address, "coordinates": b.Coordinates})
			if err != nil {
				return fmt.Errorf("failed to seed building %q: %w", b.Address, err)
			}
			buildingIDs[i] = id
		}

		activityIDs := make(map[string]int64, len(seedActivities))
		levels := make(map[string]int, len(seedActivities))
		for _, a := range seedActivities {
			data := repository.Values{"name": a.name, "level": 1}
			if a.parent != "" {
				data["parent_id"] = activityIDs[a.parent]
				data["level"] = levels[a.parent] + 1
			}
			id, err := tx.Activities().AddOne(ctx, data)
			if err != nil {
				return fmt.Errorf("failed to seed activity %q: %w", a.name, err)
			}
			activityIDs[a.name] = id
			levels[a.name] = data["level"].(int)
		}

		for _, o := range seedOrganizations {
			ids := make([]int64, 0, len(o.activities))
			for _, name := range o.activities {
				ids = append(ids, activityIDs[name])
			}
			in := OrganizationInput{Name: o.name, Phones: o.phones, BuildingID: buildingIDs[o.building], ActivityIDs: ids}
			orgID, err := tx.Organizations().AddOne(ctx, in.values())
			if err != nil {
				return fmt.Errorf("failed to seed organization %q: %w", o.name, err)
			}
			if err := linkActivities(ctx, tx, orgID, ids); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.buildings != nil {
		s.buildings.InvalidateCache(ctx)
	}
	s.logger.Info("Directory seeded",
		zap.Int("buildings", len(seedBuildings)),
		zap.Int("activities", len(seedActivities)),
		zap.Int("organizations", len(seedOrganizations)),
	)
	publish(ctx, s.events, s.logger, events.New(events.EntityDirectory, events.ActionReset, 0))
	return nil
}
