package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gol43/test-moon/internal/domain"
	"github.com/gol43/test-moon/internal/events"
	"github.com/gol43/test-moon/internal/repository"
)

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Entity + "/" + e.Action
	}
	return out
}

type testEnv struct {
	store         *repository.MemoryStore
	events        *recorder
	activities    *ActivityService
	buildings     *BuildingService
	organizations *OrganizationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := repository.NewMemoryStore()
	rec := &recorder{}
	logger := zap.NewNop()
	return &testEnv{
		store:         st,
		events:        rec,
		activities:    NewActivityService(st, rec, logger),
		buildings:     NewBuildingService(st, nil, rec, logger),
		organizations: NewOrganizationService(st, rec, logger),
	}
}

func (e *testEnv) addBuilding(t *testing.T, address string, lat, lon float64) int64 {
	t.Helper()
	id, err := e.buildings.AddBuilding(context.Background(), address, domain.Coordinates{Lat: lat, Lon: lon})
	require.NoError(t, err)
	return id
}

func (e *testEnv) addActivity(t *testing.T, name string, parent *int64) int64 {
	t.Helper()
	id, err := e.activities.AddActivity(context.Background(), name, parent)
	require.NoError(t, err)
	return id
}

func ptr(v int64) *int64 { return &v }
