package repository

import (
	"context"
	"fmt"

	"github.com/gol43/test-moon/internal/domain"

	"github.com/lib/pq"
)

// PostgresOrganizationsRepository loads Building and Activities for every
// organization it returns, with one batched query per relation.
type PostgresOrganizationsRepository struct {
	*PostgresRepository[domain.Organization]
}

var _ OrganizationsRepository = (*PostgresOrganizationsRepository)(nil)

// NewPostgresOrganizationsRepository creates an organizations repository over q.
func NewPostgresOrganizationsRepository(q DBTX) *PostgresOrganizationsRepository {
	return &PostgresOrganizationsRepository{newPostgresRepository(q, organizationsTable)}
}

func (r *PostgresOrganizationsRepository) FindAllWithRelations(ctx context.Context) ([]*domain.Organization, error) {
	orgs, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return orgs, r.loadRelations(ctx, orgs)
}

func (r *PostgresOrganizationsRepository) FindOneWithRelations(ctx context.Context, f Filter) (*domain.Organization, error) {
	org, err := r.FindOneWithFilter(ctx, f)
	if err != nil || org == nil {
		return org, err
	}
	if err := r.loadRelations(ctx, []*domain.Organization{org}); err != nil {
		return nil, err
	}
	return org, nil
}

func (r *PostgresOrganizationsRepository) FindByActivityIDs(ctx context.Context, ids []int64) ([]*domain.Organization, error) {
	if len(ids) == 0 {
		return []*domain.Organization{}, nil
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM organizations
		WHERE id IN (
			SELECT organization_id FROM organization_activities WHERE activity_id = ANY($1)
		)
		ORDER BY id
	`, organizationsTable.selectList())
	orgs, err := r.queryRows(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return orgs, r.loadRelations(ctx, orgs)
}

func (r *PostgresOrganizationsRepository) FindByBuildingIDsWithRelations(ctx context.Context, ids []int64) ([]*domain.Organization, error) {
	if len(ids) == 0 {
		return []*domain.Organization{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE building_id = ANY($1) ORDER BY id`,
		organizationsTable.selectList())
	orgs, err := r.queryRows(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return orgs, r.loadRelations(ctx, orgs)
}

// loadRelations attaches buildings and activities to orgs in place.
func (r *PostgresOrganizationsRepository) loadRelations(ctx context.Context, orgs []*domain.Organization) error {
	if len(orgs) == 0 {
		return nil
	}

	orgIDs := make([]int64, 0, len(orgs))
	buildingIDs := make([]int64, 0, len(orgs))
	seen := make(map[int64]bool, len(orgs))
	byID := make(map[int64]*domain.Organization, len(orgs))
	for _, o := range orgs {
		orgIDs = append(orgIDs, o.ID)
		byID[o.ID] = o
		if !seen[o.BuildingID] {
			seen[o.BuildingID] = true
			buildingIDs = append(buildingIDs, o.BuildingID)
		}
	}

	buildings, err := r.loadBuildings(ctx, buildingIDs)
	if err != nil {
		return err
	}
	for _, o := range orgs {
		o.Building = buildings[o.BuildingID]
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT oa.organization_id, a.id, a.name, a.parent_id, a.level
		FROM organization_activities oa
		JOIN activities a ON a.id = oa.activity_id
		WHERE oa.organization_id = ANY($1)
		ORDER BY oa.organization_id, a.id
	`, pq.Array(orgIDs))
	if err != nil {
		return fmt.Errorf("failed to load organization activities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orgID int64
		a, err := scanActivity(scannerFunc(func(dest ...any) error {
			return rows.Scan(append([]any{&orgID}, dest...)...)
		}))
		if err != nil {
			return fmt.Errorf("failed to scan organization activity: %w", err)
		}
		if o := byID[orgID]; o != nil {
			o.Activities = append(o.Activities, a)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate organization activities: %w", err)
	}
	return nil
}

func (r *PostgresOrganizationsRepository) loadBuildings(ctx context.Context, ids []int64) (map[int64]*domain.Building, error) {
	rows, err := r.q.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM buildings WHERE id = ANY($1)`, buildingsTable.selectList()),
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load buildings: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]*domain.Building, len(ids))
	for rows.Next() {
		b, err := buildingsTable.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan building: %w", err)
		}
		out[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate buildings: %w", err)
	}
	return out, nil
}

// scannerFunc adapts a closure to rowScanner.
type scannerFunc func(dest ...any) error

func (f scannerFunc) Scan(dest ...any) error { return f(dest...) }
