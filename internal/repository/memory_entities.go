package repository

import (
	"context"
	"fmt"

	"github.com/gol43/test-moon/internal/domain"
)

var memBuildings = &memTable[domain.Building]{
	name: "buildings",
	rows: func(st *memState) map[int64]*domain.Building { return st.buildings },
	fields: map[string]func(*domain.Building) any{
		"id":      func(b *domain.Building) any { return b.ID },
		"address": func(b *domain.Building) any { return b.Address },
	},
	required: []string{"address", "coordinates"},
	apply: func(_ *memState, b *domain.Building, data Values) error {
		for col, v := range data {
			var err error
			switch col {
			case "address":
				b.Address, err = stringValue("buildings", col, v)
			case "coordinates":
				b.Coordinates, err = coordinatesValue(v)
			default:
				err = unknownField("buildings", col)
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
	newRow: func() *domain.Building { return &domain.Building{} },
	id:     func(b *domain.Building) int64 { return b.ID },
	setID:  func(b *domain.Building, id int64) { b.ID = id },
	clone:  cloneBuilding,
	remove: func(st *memState, id int64) { st.removeBuilding(id) },
}

var memActivities = &memTable[domain.Activity]{
	name: "activities",
	rows: func(st *memState) map[int64]*domain.Activity { return st.activities },
	fields: map[string]func(*domain.Activity) any{
		"id":   func(a *domain.Activity) any { return a.ID },
		"name": func(a *domain.Activity) any { return a.Name },
		"parent_id": func(a *domain.Activity) any {
			if a.ParentID == nil {
				return nil
			}
			return *a.ParentID
		},
		"level": func(a *domain.Activity) any { return int64(a.Level) },
	},
	required: []string{"name"},
	apply: func(st *memState, a *domain.Activity, data Values) error {
		for col, v := range data {
			var err error
			switch col {
			case "name":
				a.Name, err = stringValue("activities", col, v)
			case "parent_id":
				a.ParentID, err = optionalInt64Value("activities", col, v)
				if err == nil && a.ParentID != nil {
					if _, ok := st.activities[*a.ParentID]; !ok {
						err = &ConstraintError{Table: "activities", Constraint: "activities_parent_id_fkey"}
					}
				}
			case "level":
				var level int64
				level, err = int64Value("activities", col, v)
				a.Level = int(level)
			default:
				err = unknownField("activities", col)
			}
			if err != nil {
				return err
			}
		}
		if a.Level < 1 || a.Level > domain.MaxActivityLevel {
			return &ConstraintError{Table: "activities", Constraint: "activities_level_check"}
		}
		return nil
	},
	newRow: func() *domain.Activity { return &domain.Activity{Level: 1} },
	id:     func(a *domain.Activity) int64 { return a.ID },
	setID:  func(a *domain.Activity, id int64) { a.ID = id },
	clone:  cloneActivity,
	remove: func(st *memState, id int64) { st.removeActivity(id) },
}

var memOrganizations = &memTable[domain.Organization]{
	name: "organizations",
	rows: func(st *memState) map[int64]*domain.Organization { return st.organizations },
	fields: map[string]func(*domain.Organization) any{
		"id":          func(o *domain.Organization) any { return o.ID },
		"name":        func(o *domain.Organization) any { return o.Name },
		"building_id": func(o *domain.Organization) any { return o.BuildingID },
	},
	required: []string{"name", "building_id"},
	apply: func(st *memState, o *domain.Organization, data Values) error {
		for col, v := range data {
			var err error
			switch col {
			case "name":
				o.Name, err = stringValue("organizations", col, v)
			case "phones":
				o.Phones, err = phonesValue(v)
			case "building_id":
				o.BuildingID, err = int64Value("organizations", col, v)
				if err == nil {
					if _, ok := st.buildings[o.BuildingID]; !ok {
						err = &ConstraintError{Table: "organizations", Constraint: "organizations_building_id_fkey"}
					}
				}
			default:
				err = unknownField("organizations", col)
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
	newRow: func() *domain.Organization { return &domain.Organization{} },
	id:     func(o *domain.Organization) int64 { return o.ID },
	setID:  func(o *domain.Organization, id int64) { o.ID = id },
	clone:  cloneOrganization,
	remove: func(st *memState, id int64) { st.removeOrganization(id) },
}

// MemoryBuildingsRepo is the in-memory buildings repository.
type MemoryBuildingsRepo struct {
	*MemoryRepository[domain.Building]
}

var _ BuildingsRepository = (*MemoryBuildingsRepo)(nil)

func (r *MemoryBuildingsRepo) FindInBox(_ context.Context, box domain.BoundingBox) ([]*domain.Building, error) {
	var out []*domain.Building
	r.s.read(func(st *memState) {
		out = r.collect(st, func(b *domain.Building) bool { return box.Contains(b.Coordinates) })
	})
	return out, nil
}

// MemoryActivitiesRepo is the in-memory activities repository.
type MemoryActivitiesRepo struct {
	*MemoryRepository[domain.Activity]
}

var _ ActivitiesRepository = (*MemoryActivitiesRepo)(nil)

// MemoryOrganizationsRepo is the in-memory organizations repository.
type MemoryOrganizationsRepo struct {
	*MemoryRepository[domain.Organization]
}

var _ OrganizationsRepository = (*MemoryOrganizationsRepo)(nil)

func (r *MemoryOrganizationsRepo) FindAllWithRelations(_ context.Context) ([]*domain.Organization, error) {
	return r.findWithRelations(func(*memState, *domain.Organization) bool { return true }), nil
}

func (r *MemoryOrganizationsRepo) FindOneWithRelations(ctx context.Context, f Filter) (*domain.Organization, error) {
	org, err := r.FindOneWithFilter(ctx, f)
	if err != nil || org == nil {
		return org, err
	}
	var out *domain.Organization
	r.s.read(func(st *memState) {
		if current, ok := st.organizations[org.ID]; ok {
			out = st.withRelations(current)
		}
	})
	return out, nil
}

func (r *MemoryOrganizationsRepo) FindByActivityIDs(_ context.Context, ids []int64) ([]*domain.Organization, error) {
	if len(ids) == 0 {
		return []*domain.Organization{}, nil
	}
	return r.findWithRelations(func(st *memState, o *domain.Organization) bool {
		for _, id := range ids {
			if _, ok := st.links[domain.OrganizationActivity{OrganizationID: o.ID, ActivityID: id}]; ok {
				return true
			}
		}
		return false
	}), nil
}

func (r *MemoryOrganizationsRepo) FindByBuildingIDsWithRelations(_ context.Context, ids []int64) ([]*domain.Organization, error) {
	if len(ids) == 0 {
		return []*domain.Organization{}, nil
	}
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return r.findWithRelations(func(_ *memState, o *domain.Organization) bool { return wanted[o.BuildingID] }), nil
}

func (r *MemoryOrganizationsRepo) findWithRelations(match func(*memState, *domain.Organization) bool) []*domain.Organization {
	var out []*domain.Organization
	r.s.read(func(st *memState) {
		for _, o := range r.collect(st, func(o *domain.Organization) bool { return match(st, o) }) {
			out = append(out, st.withRelations(o))
		}
	})
	if out == nil {
		out = []*domain.Organization{}
	}
	return out
}

func stringValue(table, col string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("invalid value for %s.%s: %T", table, col, v)
	}
	return s, nil
}

func int64Value(table, col string, v any) (int64, error) {
	switch x := normalize(v).(type) {
	case int64:
		return x, nil
	default:
		return 0, fmt.Errorf("invalid value for %s.%s: %T", table, col, v)
	}
}

func optionalInt64Value(table, col string, v any) (*int64, error) {
	n := normalize(v)
	if n == nil {
		return nil, nil
	}
	id, err := int64Value(table, col, n)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func coordinatesValue(v any) (domain.Coordinates, error) {
	switch c := v.(type) {
	case domain.Coordinates:
		return c, nil
	case *domain.Coordinates:
		if c != nil {
			return *c, nil
		}
	}
	return domain.Coordinates{}, fmt.Errorf("invalid value for buildings.coordinates: %T", v)
}

func phonesValue(v any) (domain.Phones, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case domain.Phones:
		if p == nil {
			return nil, nil
		}
		return append(domain.Phones{}, p...), nil
	case []string:
		if p == nil {
			return nil, nil
		}
		return append(domain.Phones{}, p...), nil
	default:
		return nil, fmt.Errorf("invalid value for organizations.phones: %T", v)
	}
}
