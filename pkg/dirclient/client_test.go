package dirclient

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gol43/test-moon/internal/events"
	httpapi "github.com/gol43/test-moon/internal/http"
	"github.com/gol43/test-moon/internal/repository"
	"github.com/gol43/test-moon/internal/service"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	logger := zap.NewNop()
	st := repository.NewMemoryStore()
	buildings := service.NewBuildingService(st, nil, events.Nop{}, logger)
	srv := httptest.NewServer(httpapi.NewRouter(httpapi.Deps{
		Activities:    service.NewActivityService(st, events.Nop{}, logger),
		Buildings:     buildings,
		Organizations: service.NewOrganizationService(st, events.Nop{}, logger),
		Seed:          service.NewSeedService(st, buildings, events.Nop{}, logger),
		Store:         st,
		Logger:        logger,
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/v1", logger, WithRetries(0))
}

func TestClient_ActivitiesAndBuildings(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	root, err := c.CreateActivity(ctx, "Food", nil)
	require.NoError(t, err)
	child, err := c.CreateActivity(ctx, "Meat", &root)
	require.NoError(t, err)
	require.NoError(t, c.RenameActivity(ctx, child, "Poultry"))

	activities, err := c.ListActivities(ctx)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, "Poultry", activities[1].Name)
	assert.Equal(t, &root, activities[1].ParentID)
	assert.Equal(t, 2, activities[1].Level)

	_, err = c.CreateActivity(ctx, "Orphan", ptr(int64(99)))
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "directory api: 404 activity 99 not found")

	id, err := c.CreateBuilding(ctx, "Lenina 1", Coordinates{Lat: 54.7104, Lon: 20.511})
	require.NoError(t, err)
	buildings, err := c.ListBuildings(ctx)
	require.NoError(t, err)
	require.Len(t, buildings, 1)
	assert.Equal(t, Coordinates{Lat: 54.7104, Lon: 20.511}, buildings[0].Coordinates)

	require.NoError(t, c.DeleteBuilding(ctx, id))
	assert.True(t, IsNotFound(c.DeleteBuilding(ctx, id)))

	require.NoError(t, c.DeleteActivity(ctx, root))
	activities, err = c.ListActivities(ctx)
	require.NoError(t, err)
	assert.Empty(t, activities)
}

func TestClient_Organizations(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	require.NoError(t, c.InitDB(ctx))

	orgs, err := c.ListOrganizations(ctx)
	require.NoError(t, err)
	assert.Len(t, orgs, 3)

	_, err = c.CreateOrganization(ctx, OrganizationInput{Name: "Ghost", BuildingID: 50, ActivityIDs: []int64{1}})
	assert.True(t, IsBadRequest(err))

	id, err := c.CreateOrganization(ctx, OrganizationInput{
		Name:        "Horns and Hooves",
		Phones:      []string{"8-800"},
		BuildingID:  1,
		ActivityIDs: []int64{2},
	})
	require.NoError(t, err)

	org, err := c.GetOrganization(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"8-800"}, org.Phones)
	require.NotNil(t, org.Building)
	assert.Equal(t, "ул. Ленина, д.1", org.Building.Address)

	byName, err := c.GetOrganizationByName(ctx, "Horns and Hooves")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)

	updated, err := c.UpdateOrganization(ctx, id, OrganizationInput{Name: "Hooves", BuildingID: 3, ActivityIDs: []int64{6}})
	require.NoError(t, err)
	assert.Equal(t, "Hooves", updated.Name)
	assert.Equal(t, int64(3), updated.BuildingID)

	byActivity, err := c.OrganizationsByActivityName(ctx, "Finance")
	require.NoError(t, err)
	assert.Len(t, byActivity, 2)

	byActivityID, err := c.OrganizationsByActivityID(ctx, 6)
	require.NoError(t, err)
	assert.Len(t, byActivityID, 2)

	inBuilding, err := c.OrganizationsByBuilding(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, inBuilding, 2)

	inBox, err := c.OrganizationsInBox(ctx, Box{LatMin: 54.70, LonMin: 20.50, LatMax: 54.711, LonMax: 20.52})
	require.NoError(t, err)
	require.Len(t, inBox, 1)
	assert.Equal(t, "Орг1", inBox[0].Name)

	data, err := c.ExportOrganizations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]))

	require.NoError(t, c.DeleteOrganization(ctx, id))
	_, err = c.GetOrganization(ctx, id)
	assert.True(t, IsNotFound(err))
}

func ptr[T any](v T) *T { return &v }
