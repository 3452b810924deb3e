package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/gol43/test-moon/internal/domain"
)

// memTable is the in-memory counterpart of table: explicit getters per filterable
// field and explicit constructors instead of reflection.
type memTable[T any] struct {
	name   string
	rows   func(st *memState) map[int64]*T
	fields map[string]func(*T) any
	// apply writes data onto row (a private copy) and validates references against st.
	apply func(st *memState, row *T, data Values) error
	// required columns must be present on insert (NOT NULL without default).
	required []string
	newRow   func() *T
	id       func(*T) int64
	setID    func(*T, int64)
	clone    func(*T) *T
	remove   func(st *memState, id int64)
}

// MemoryRepository implements Repository[T] over a MemoryStore.
type MemoryRepository[T any] struct {
	s *MemoryStore
	t *memTable[T]
}

func (r *MemoryRepository[T]) FindAll(_ context.Context) ([]*T, error) {
	var out []*T
	r.s.read(func(st *memState) {
		out = r.collect(st, func(*T) bool { return true })
	})
	return out, nil
}

func (r *MemoryRepository[T]) FindOneWithFilter(ctx context.Context, f Filter) (*T, error) {
	items, err := r.FindAllWithFilter(ctx, f)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		return items[0], nil
	default:
		return nil, fmt.Errorf("%w: %s.%s", ErrMultipleRows, r.t.name, f.Field)
	}
}

func (r *MemoryRepository[T]) FindAllWithFilter(_ context.Context, f Filter) ([]*T, error) {
	get, ok := r.t.fields[f.Field]
	if !ok {
		return nil, unknownField(r.t.name, f.Field)
	}
	want := normalize(f.Value)
	var out []*T
	r.s.read(func(st *memState) {
		out = r.collect(st, func(row *T) bool { return get(row) == want })
	})
	return out, nil
}

func (r *MemoryRepository[T]) FindAllWithFilterIn(_ context.Context, field string, values []any) ([]*T, error) {
	get, ok := r.t.fields[field]
	if !ok {
		return nil, unknownField(r.t.name, field)
	}
	if len(values) == 0 {
		return []*T{}, nil
	}
	set := make(map[any]bool, len(values))
	for _, v := range values {
		set[normalize(v)] = true
	}
	var out []*T
	r.s.read(func(st *memState) {
		out = r.collect(st, func(row *T) bool { return set[get(row)] })
	})
	return out, nil
}

func (r *MemoryRepository[T]) AddOne(_ context.Context, data Values) (int64, error) {
	var id int64
	err := r.s.write(func(st *memState) error {
		for _, col := range r.t.required {
			if v, ok := data[col]; !ok || v == nil {
				return &ConstraintError{Table: r.t.name, Constraint: col + " not_null_violation"}
			}
		}
		row := r.t.newRow()
		if err := r.t.apply(st, row, data); err != nil {
			return err
		}
		id = st.nextID(r.t.name)
		r.t.setID(row, id)
		r.t.rows(st)[id] = row
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", r.t.name, err)
	}
	return id, nil
}

func (r *MemoryRepository[T]) UpdateOne(_ context.Context, id int64, data Values) (int64, error) {
	err := r.s.write(func(st *memState) error {
		current, ok := r.t.rows(st)[id]
		if !ok {
			return fmt.Errorf("%w: %s id=%d", ErrNotFound, r.t.name, id)
		}
		row := r.t.clone(current)
		if err := r.t.apply(st, row, data); err != nil {
			return err
		}
		r.t.rows(st)[id] = row
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *MemoryRepository[T]) DeleteOne(_ context.Context, id int64) error {
	return r.s.write(func(st *memState) error {
		if _, ok := r.t.rows(st)[id]; !ok {
			return fmt.Errorf("%w: %s id=%d", ErrNotFound, r.t.name, id)
		}
		r.t.remove(st, id)
		return nil
	})
}

// AddRelation supports the organization_activities link table only.
func (r *MemoryRepository[T]) AddRelation(_ context.Context, join JoinTable, keys Values) error {
	if join.Name != OrganizationActivities.Name {
		return unknownField(join.Name, "*")
	}
	orgID, err := int64Value(join.Name, "organization_id", keys["organization_id"])
	if err != nil {
		return err
	}
	activityID, err := int64Value(join.Name, "activity_id", keys["activity_id"])
	if err != nil {
		return err
	}
	return r.s.write(func(st *memState) error {
		if _, ok := st.organizations[orgID]; !ok {
			return &ConstraintError{Table: join.Name, Constraint: "organization_activities_organization_id_fkey"}
		}
		if _, ok := st.activities[activityID]; !ok {
			return &ConstraintError{Table: join.Name, Constraint: "organization_activities_activity_id_fkey"}
		}
		link := domain.OrganizationActivity{OrganizationID: orgID, ActivityID: activityID}
		if _, ok := st.links[link]; ok {
			return &ConstraintError{Table: join.Name, Constraint: "organization_activities_pkey"}
		}
		st.links[link] = struct{}{}
		return nil
	})
}

func (r *MemoryRepository[T]) DeleteRelations(_ context.Context, join JoinTable, f Filter) (int64, error) {
	if join.Name != OrganizationActivities.Name || !join.hasColumn(f.Field) {
		return 0, unknownField(join.Name, f.Field)
	}
	want := normalize(f.Value)
	var n int64
	err := r.s.write(func(st *memState) error {
		for l := range st.links {
			key := l.OrganizationID
			if f.Field == "activity_id" {
				key = l.ActivityID
			}
			if key == want {
				delete(st.links, l)
				n++
			}
		}
		return nil
	})
	return n, err
}

// collect returns copies of the matching rows ordered by id.
func (r *MemoryRepository[T]) collect(st *memState, match func(*T) bool) []*T {
	out := []*T{}
	for _, row := range r.t.rows(st) {
		if match(row) {
			out = append(out, r.t.clone(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.t.id(out[i]) < r.t.id(out[j]) })
	return out
}

// normalize maps the integer flavours callers use onto int64 so filter values
// compare equal to getter results.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case *int64:
		if x == nil {
			return nil
		}
		return *x
	default:
		return v
	}
}
