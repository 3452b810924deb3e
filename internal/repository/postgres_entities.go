package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gol43/test-moon/internal/domain"
)

var buildingsTable = &table[domain.Building]{
	name:       "buildings",
	columns:    []string{"id", "address", "coordinates"},
	filterable: map[string]bool{"id": true, "address": true},
	writable:   map[string]bool{"address": true, "coordinates": true},
	scan: func(s rowScanner) (*domain.Building, error) {
		var b domain.Building
		if err := s.Scan(&b.ID, &b.Address, &b.Coordinates); err != nil {
			return nil, err
		}
		return &b, nil
	},
}

var activitiesTable = &table[domain.Activity]{
	name:       "activities",
	columns:    []string{"id", "name", "parent_id", "level"},
	filterable: map[string]bool{"id": true, "name": true, "parent_id": true, "level": true},
	writable:   map[string]bool{"name": true, "parent_id": true, "level": true},
	scan:       scanActivity,
}

var organizationsTable = &table[domain.Organization]{
	name:       "organizations",
	columns:    []string{"id", "name", "phones", "building_id"},
	filterable: map[string]bool{"id": true, "name": true, "building_id": true},
	writable:   map[string]bool{"name": true, "phones": true, "building_id": true},
	scan: func(s rowScanner) (*domain.Organization, error) {
		o := domain.Organization{Activities: []*domain.Activity{}}
		if err := s.Scan(&o.ID, &o.Name, &o.Phones, &o.BuildingID); err != nil {
			return nil, err
		}
		return &o, nil
	},
}

func scanActivity(s rowScanner) (*domain.Activity, error) {
	var (
		a        domain.Activity
		parentID sql.NullInt64
	)
	if err := s.Scan(&a.ID, &a.Name, &parentID, &a.Level); err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := parentID.Int64
		a.ParentID = &id
	}
	return &a, nil
}

// PostgresBuildingsRepository is the buildings repository.
type PostgresBuildingsRepository struct {
	*PostgresRepository[domain.Building]
}

var _ BuildingsRepository = (*PostgresBuildingsRepository)(nil)

// NewPostgresBuildingsRepository creates a buildings repository over q.
func NewPostgresBuildingsRepository(q DBTX) *PostgresBuildingsRepository {
	return &PostgresBuildingsRepository{newPostgresRepository(q, buildingsTable)}
}

// FindInBox filters on the JSONB coordinates in SQL instead of loading every building.
func (r *PostgresBuildingsRepository) FindInBox(ctx context.Context, box domain.BoundingBox) ([]*domain.Building, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM buildings
		WHERE (coordinates->>'lat')::float8 BETWEEN $1 AND $2
		  AND (coordinates->>'lon')::float8 BETWEEN $3 AND $4
		ORDER BY id
	`, buildingsTable.selectList())
	return r.queryRows(ctx, query, box.LatMin, box.LatMax, box.LonMin, box.LonMax)
}

// PostgresActivitiesRepository is the activities repository.
type PostgresActivitiesRepository struct {
	*PostgresRepository[domain.Activity]
}

var _ ActivitiesRepository = (*PostgresActivitiesRepository)(nil)

// NewPostgresActivitiesRepository creates an activities repository over q.
func NewPostgresActivitiesRepository(q DBTX) *PostgresActivitiesRepository {
	return &PostgresActivitiesRepository{newPostgresRepository(q, activitiesTable)}
}
