package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/gol43/test-moon/internal/domain"
)

// memState is the arena behind MemoryStore: rows keyed by id, references held as ids.
type memState struct {
	buildings     map[int64]*domain.Building
	activities    map[int64]*domain.Activity
	organizations map[int64]*domain.Organization
	links         map[domain.OrganizationActivity]struct{}
	seq           map[string]int64
}

func newMemState() *memState {
	return &memState{
		buildings:     map[int64]*domain.Building{},
		activities:    map[int64]*domain.Activity{},
		organizations: map[int64]*domain.Organization{},
		links:         map[domain.OrganizationActivity]struct{}{},
		seq:           map[string]int64{},
	}
}

func (st *memState) clone() *memState {
	c := newMemState()
	for id, b := range st.buildings {
		c.buildings[id] = cloneBuilding(b)
	}
	for id, a := range st.activities {
		c.activities[id] = cloneActivity(a)
	}
	for id, o := range st.organizations {
		c.organizations[id] = cloneOrganization(o)
	}
	for l := range st.links {
		c.links[l] = struct{}{}
	}
	for k, v := range st.seq {
		c.seq[k] = v
	}
	return c
}

func (st *memState) nextID(table string) int64 {
	st.seq[table]++
	return st.seq[table]
}

// removeBuilding deletes a building together with its organizations.
func (st *memState) removeBuilding(id int64) {
	delete(st.buildings, id)
	for orgID, o := range st.organizations {
		if o.BuildingID == id {
			st.removeOrganization(orgID)
		}
	}
}

// removeActivity deletes an activity and its whole subtree with an explicit worklist.
func (st *memState) removeActivity(id int64) {
	pending := []int64{id}
	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		delete(st.activities, cur)
		for l := range st.links {
			if l.ActivityID == cur {
				delete(st.links, l)
			}
		}
		for childID, a := range st.activities {
			if a.ParentID != nil && *a.ParentID == cur {
				pending = append(pending, childID)
			}
		}
	}
}

func (st *memState) removeOrganization(id int64) {
	delete(st.organizations, id)
	for l := range st.links {
		if l.OrganizationID == id {
			delete(st.links, l)
		}
	}
}

// withRelations returns a copy of o with Building and Activities attached.
func (st *memState) withRelations(o *domain.Organization) *domain.Organization {
	out := cloneOrganization(o)
	if b, ok := st.buildings[o.BuildingID]; ok {
		out.Building = cloneBuilding(b)
	}
	out.Activities = []*domain.Activity{}
	for l := range st.links {
		if l.OrganizationID != o.ID {
			continue
		}
		if a, ok := st.activities[l.ActivityID]; ok {
			out.Activities = append(out.Activities, cloneActivity(a))
		}
	}
	sort.Slice(out.Activities, func(i, j int) bool { return out.Activities[i].ID < out.Activities[j].ID })
	return out
}

// MemoryStore keeps the directory in process memory. It is used when no
// database is configured and by the service tests.
type MemoryStore struct {
	mu *sync.RWMutex
	// writeMu serializes writers with transactions; nil on a transaction's own store.
	writeMu *sync.Mutex
	state   *memState

	buildings     *MemoryBuildingsRepo
	activities    *MemoryActivitiesRepo
	organizations *MemoryOrganizationsRepo
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return newMemoryStore(newMemState(), &sync.Mutex{})
}

func newMemoryStore(st *memState, writeMu *sync.Mutex) *MemoryStore {
	s := &MemoryStore{mu: &sync.RWMutex{}, writeMu: writeMu, state: st}
	s.buildings = &MemoryBuildingsRepo{&MemoryRepository[domain.Building]{s: s, t: memBuildings}}
	s.activities = &MemoryActivitiesRepo{&MemoryRepository[domain.Activity]{s: s, t: memActivities}}
	s.organizations = &MemoryOrganizationsRepo{&MemoryRepository[domain.Organization]{s: s, t: memOrganizations}}
	return s
}

func (s *MemoryStore) Buildings() BuildingsRepository         { return s.buildings }
func (s *MemoryStore) Activities() ActivitiesRepository       { return s.activities }
func (s *MemoryStore) Organizations() OrganizationsRepository { return s.organizations }

// WithinTx runs fn on a snapshot and swaps it in only when fn succeeds.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.writeMu == nil {
		return fn(s)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	tx := newMemoryStore(snapshot, nil)
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = tx.state
	s.mu.Unlock()
	return nil
}

// Reset drops every row and restarts the id sequences.
func (s *MemoryStore) Reset(_ context.Context) error {
	return s.write(func(st *memState) error {
		*st = *newMemState()
		return nil
	})
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) read(fn func(st *memState)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}

func (s *MemoryStore) write(fn func(st *memState) error) error {
	if s.writeMu != nil {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func cloneBuilding(b *domain.Building) *domain.Building {
	c := *b
	return &c
}

func cloneActivity(a *domain.Activity) *domain.Activity {
	c := *a
	if a.ParentID != nil {
		id := *a.ParentID
		c.ParentID = &id
	}
	return &c
}

func cloneOrganization(o *domain.Organization) *domain.Organization {
	c := *o
	if o.Phones != nil {
		c.Phones = append(domain.Phones{}, o.Phones...)
	}
	c.Building = nil
	c.Activities = []*domain.Activity{}
	return &c
}
