package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gol43/test-moon/internal/domain"
	"github.com/gol43/test-moon/internal/repository"
)

type orgFixture struct {
	*testEnv
	building int64
	other    int64
	food     int64
	meat     int64
	cars     int64
}

func newOrgFixture(t *testing.T) *orgFixture {
	env := newTestEnv(t)
	f := &orgFixture{testEnv: env}
	f.building = env.addBuilding(t, "Lenina 1", 54.7104, 20.5110)
	f.other = env.addBuilding(t, "Gagarina 10", 54.73, 20.53)
	f.food = env.addActivity(t, "Food", nil)
	f.meat = env.addActivity(t, "Meat", ptr(f.food))
	f.cars = env.addActivity(t, "Cars", nil)
	return f
}

func (f *orgFixture) create(t *testing.T, name string, building int64, activities ...int64) int64 {
	t.Helper()
	id, err := f.organizations.AddOrganizationWithActivities(context.Background(), OrganizationInput{
		Name:        name,
		Phones:      []string{"2-222-222"},
		BuildingID:  building,
		ActivityIDs: activities,
	})
	require.NoError(t, err)
	return id
}

func TestOrganizationService_CreateRoundTrip(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()

	id := f.create(t, "Horns and Hooves", f.building, f.food, f.cars)

	org, err := f.organizations.FindOneOrganization(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Horns and Hooves", org.Name)
	assert.Equal(t, domain.Phones{"2-222-222"}, org.Phones)
	assert.Equal(t, f.building, org.BuildingID)
	require.NotNil(t, org.Building)
	assert.Equal(t, "Lenina 1", org.Building.Address)
	assert.ElementsMatch(t, []int64{f.food, f.cars}, org.ActivityIDs())

	byName, err := f.organizations.FindOneOrganization(ctx, "Horns and Hooves")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)

	for _, key := range []any{int(id), int8(id), int16(id), int32(id), uint(id), uint8(id), uint16(id), uint32(id), uint64(id)} {
		byInt, err := f.organizations.FindOneOrganization(ctx, key)
		require.NoError(t, err, "%T", key)
		assert.Equal(t, id, byInt.ID, "%T", key)
	}
}

func TestOrganizationService_CreateDeduplicatesActivities(t *testing.T) {
	f := newOrgFixture(t)

	id := f.create(t, "Twice", f.building, f.meat, f.meat)
	org, err := f.organizations.FindOneOrganization(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.meat}, org.ActivityIDs())
}

func TestOrganizationService_CreateWithoutPhones(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()

	id, err := f.organizations.AddOrganizationWithActivities(ctx, OrganizationInput{Name: "Silent", BuildingID: f.building})
	require.NoError(t, err)

	org, err := f.organizations.FindOneOrganization(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, org.Phones)
	assert.Empty(t, org.Activities)
}

func TestOrganizationService_CreateWithMissingReferences(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()

	_, err := f.organizations.AddOrganizationWithActivities(ctx, OrganizationInput{
		Name:        "Ghost",
		BuildingID:  404,
		ActivityIDs: []int64{f.food, 77, 78},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidReference)

	var refErr *ReferenceError
	require.True(t, errors.As(err, &refErr))
	assert.Equal(t, int64(404), refErr.BuildingID)
	assert.Equal(t, []int64{77, 78}, refErr.ActivityIDs)
	assert.Equal(t, "building 404 not found; activities [77, 78] not found", err.Error())

	orgs, err := f.organizations.FindOrganizations(ctx)
	require.NoError(t, err)
	assert.Empty(t, orgs)
}

func TestOrganizationService_CreateRollsBackOnLinkFailure(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()

	// the activity disappears between validation and linking
	err := f.store.WithinTx(ctx, func(tx repository.Store) error {
		id, err := tx.Organizations().AddOne(ctx, OrganizationInput{Name: "Partial", BuildingID: f.building}.values())
		require.NoError(t, err)
		require.NoError(t, tx.Activities().DeleteOne(ctx, f.cars))
		return linkActivities(ctx, tx, id, []int64{f.food, f.cars})
	})
	assert.ErrorIs(t, err, repository.ErrConstraintViolation)

	org, err := f.store.Organizations().FindOneWithFilter(ctx, repository.Filter{Field: "name", Value: "Partial"})
	require.NoError(t, err)
	assert.Nil(t, org)

	cars, err := f.activities.FindOneActivity(ctx, f.cars)
	require.NoError(t, err)
	assert.Equal(t, "Cars", cars.Name)
}

func TestOrganizationService_UpdateReplacesActivities(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()

	id := f.create(t, "Horns", f.building, f.food, f.cars)

	org, err := f.organizations.UpdateOrganization(ctx, id, OrganizationInput{
		Name:        "Horns and Hooves",
		Phones:      []string{"8-923-666-13-13"},
		BuildingID:  f.other,
		ActivityIDs: []int64{f.meat},
	})
	require.NoError(t, err)
	assert.Equal(t, "Horns and Hooves", org.Name)
	assert.Equal(t, f.other, org.BuildingID)
	assert.Equal(t, "Gagarina 10", org.Building.Address)
	assert.Equal(t, []int64{f.meat}, org.ActivityIDs())

	byFood, err := f.organizations.FindOrganizationsByActivityIDs(ctx, []int64{f.food, f.cars})
	require.NoError(t, err)
	assert.Empty(t, byFood)
}

func TestOrganizationService_UpdateErrors(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()
	id := f.create(t, "Horns", f.building, f.food)

	_, err := f.organizations.UpdateOrganization(ctx, 404, OrganizationInput{Name: "x", BuildingID: f.building})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.organizations.UpdateOrganization(ctx, id, OrganizationInput{Name: "x", BuildingID: f.building, ActivityIDs: []int64{999}})
	assert.ErrorIs(t, err, ErrInvalidReference)

	org, err := f.organizations.FindOneOrganization(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Horns", org.Name)
	assert.Equal(t, []int64{f.food}, org.ActivityIDs())
}

func TestOrganizationService_Delete(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()
	id := f.create(t, "Horns", f.building, f.food)

	require.NoError(t, f.organizations.DeleteOrganization(ctx, id))
	_, err := f.organizations.FindOneOrganization(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.organizations.DeleteOrganization(ctx, id), ErrNotFound)

	assert.Equal(t, []string{"organization/created", "organization/deleted"}, f.events.actions()[5:])
}

func TestOrganizationService_FindOneOrganization_InvalidKey(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()

	_, err := f.organizations.FindOneOrganization(ctx, 1.5)
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = f.organizations.FindOneOrganization(ctx, []int64{1})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = f.organizations.FindOneOrganization(ctx, uint64(math.MaxUint64))
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = f.organizations.FindOneOrganization(ctx, int8(-1))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.organizations.FindOneOrganization(ctx, "Nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrganizationService_Searches(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()

	horns := f.create(t, "Horns", f.building, f.food, f.meat)
	autodrome := f.create(t, "Autodrome", f.other, f.cars)
	butcher := f.create(t, "Butcher", f.building, f.meat)

	byActivities, err := f.organizations.FindOrganizationsByActivityIDs(ctx, []int64{f.food, f.meat})
	require.NoError(t, err)
	require.Len(t, byActivities, 2)
	assert.Equal(t, horns, byActivities[0].ID)
	assert.Equal(t, butcher, byActivities[1].ID)

	byBuilding, err := f.organizations.FindOrganizationsByBuildingID(ctx, f.other)
	require.NoError(t, err)
	require.Len(t, byBuilding, 1)
	assert.Equal(t, autodrome, byBuilding[0].ID)
	assert.NotNil(t, byBuilding[0].Building)

	inBuildings, err := f.organizations.FindOrganizationsInBuildings(ctx, []int64{f.building, f.other})
	require.NoError(t, err)
	assert.Len(t, inBuildings, 3)

	// exact name only: "Food" does not reach orgs holding just its child "Meat"
	byName, err := f.organizations.FindOrganizationsByActivityName(ctx, "Food")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, horns, byName[0].ID)

	byName, err = f.organizations.FindOrganizationsByActivityName(ctx, "Nothing")
	require.NoError(t, err)
	assert.Empty(t, byName)

	inBox, err := f.organizations.FindOrganizationsInBox(ctx, domain.BoundingBox{LatMin: 54.70, LonMin: 20.50, LatMax: 54.72, LonMax: 20.52})
	require.NoError(t, err)
	require.Len(t, inBox, 2)
	assert.Equal(t, horns, inBox[0].ID)
	assert.Equal(t, butcher, inBox[1].ID)

	inBox, err = f.organizations.FindOrganizationsInBox(ctx, domain.BoundingBox{LatMin: 0, LonMin: 0, LatMax: 1, LonMax: 1})
	require.NoError(t, err)
	assert.Empty(t, inBox)
}

func TestOrganizationService_BuildingDeleteCascades(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()
	f.create(t, "Horns", f.building, f.food)

	require.NoError(t, f.buildings.DeleteBuilding(ctx, f.building))
	orgs, err := f.organizations.FindOrganizations(ctx)
	require.NoError(t, err)
	assert.Empty(t, orgs)
}
