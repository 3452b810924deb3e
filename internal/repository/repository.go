package repository

import (
	"context"

	"github.com/gol43/test-moon/internal/domain"
)

// Filter is a single-field equality (or, with FindAllWithFilterIn, membership) filter.
// Field names are the entity's column names; unknown names fail with ErrUnknownField.
type Filter struct {
	Field string
	Value any
}

// Values maps column names to values for inserts and updates.
type Values map[string]any

// JoinTable describes a many-to-many link table keyed by the composite of its columns.
type JoinTable struct {
	Name    string
	Columns []string
}

// OrganizationActivities links organizations to the activities they practice.
var OrganizationActivities = JoinTable{
	Name:    "organization_activities",
	Columns: []string{"organization_id", "activity_id"},
}

func (j JoinTable) hasColumn(name string) bool {
	for _, c := range j.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Repository is the entity-agnostic CRUD surface.
// Every call runs as its own unit of work unless the repository was obtained
// from a Store passed to Store.WithinTx.
type Repository[T any] interface {
	FindAll(ctx context.Context) ([]*T, error)
	// FindOneWithFilter returns nil, nil when nothing matches and
	// ErrMultipleRows when the field is not unique for that value.
	FindOneWithFilter(ctx context.Context, f Filter) (*T, error)
	FindAllWithFilter(ctx context.Context, f Filter) ([]*T, error)
	// FindAllWithFilterIn returns rows whose field is one of values.
	// An empty values set returns an empty result without touching storage.
	FindAllWithFilterIn(ctx context.Context, field string, values []any) ([]*T, error)

	AddOne(ctx context.Context, data Values) (int64, error)
	// UpdateOne fails with ErrNotFound when id does not exist.
	UpdateOne(ctx context.Context, id int64, data Values) (int64, error)
	// DeleteOne fails with ErrNotFound when id does not exist.
	DeleteOne(ctx context.Context, id int64) error

	AddRelation(ctx context.Context, join JoinTable, keys Values) error
	DeleteRelations(ctx context.Context, join JoinTable, f Filter) (int64, error)
}

// BuildingsRepository adds the geo lookup to the generic surface.
type BuildingsRepository interface {
	Repository[domain.Building]
	FindInBox(ctx context.Context, box domain.BoundingBox) ([]*domain.Building, error)
}

// ActivitiesRepository is the generic surface over activities.
type ActivitiesRepository interface {
	Repository[domain.Activity]
}

// OrganizationsRepository returns organizations with Building and Activities eager-loaded.
type OrganizationsRepository interface {
	Repository[domain.Organization]

	FindAllWithRelations(ctx context.Context) ([]*domain.Organization, error)
	FindOneWithRelations(ctx context.Context, f Filter) (*domain.Organization, error)
	// FindByActivityIDs matches organizations holding any of ids, each organization once.
	FindByActivityIDs(ctx context.Context, ids []int64) ([]*domain.Organization, error)
	FindByBuildingIDsWithRelations(ctx context.Context, ids []int64) ([]*domain.Organization, error)
}

// Store groups the repositories that share one storage backend.
type Store interface {
	Buildings() BuildingsRepository
	Activities() ActivitiesRepository
	Organizations() OrganizationsRepository

	// WithinTx runs fn against a Store bound to one transaction.
	// A non-nil error from fn rolls everything back. Nested calls join the outer transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	// Reset removes every row and restarts id sequences.
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

func int64Values(ids []int64) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}
