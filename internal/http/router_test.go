package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gol43/test-moon/internal/domain"
	"github.com/gol43/test-moon/internal/events"
	"github.com/gol43/test-moon/internal/repository"
	"github.com/gol43/test-moon/internal/service"
)

type apiEnv struct {
	handler http.Handler
	store   *repository.MemoryStore
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	logger := zap.NewNop()
	st := repository.NewMemoryStore()
	buildings := service.NewBuildingService(st, nil, events.Nop{}, logger)
	h := NewRouter(Deps{
		Activities:    service.NewActivityService(st, events.Nop{}, logger),
		Buildings:     buildings,
		Organizations: service.NewOrganizationService(st, events.Nop{}, logger),
		Seed:          service.NewSeedService(st, buildings, events.Nop{}, logger),
		Store:         st,
		Metrics:       NewMetrics(),
		Logger:        logger,
	})
	return &apiEnv{handler: h, store: st}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *apiEnv) seed(t *testing.T) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/init_db", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestActivities_CreateListUpdateDelete(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/activities/create_activity", map[string]any{"name": "Food"})
	require.Equal(t, http.StatusOK, rec.Code)
	created := decodeBody[MutationResult](t, rec)
	require.NotNil(t, created.CreatedID)
	assert.True(t, created.OK)
	root := *created.CreatedID

	rec = env.do(t, http.MethodPost, "/api/v1/activities/create_activity", map[string]any{"name": "Meat", "parent_id": root})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/activities/get_all_activities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]domain.Activity](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[1].Level)

	rec = env.do(t, http.MethodPut, "/api/v1/activities/1", map[string]any{"name": "Groceries"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": true, "updated_id": 1}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/v1/activities/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": true, "deleted_id": 1}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/activities/get_all_activities", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestActivities_Errors(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/activities/create_activity", map[string]any{"name": "Orphan", "parent_id": 9})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"ok": false, "detail": "activity 9 not found"}`, rec.Body.String())

	var parent int64
	for i, name := range []string{"L1", "L2", "L3"} {
		body := map[string]any{"name": name}
		if i > 0 {
			body["parent_id"] = parent
		}
		rec = env.do(t, http.MethodPost, "/api/v1/activities/create_activity", body)
		require.Equal(t, http.StatusOK, rec.Code)
		parent = *decodeBody[MutationResult](t, rec).CreatedID
	}
	rec = env.do(t, http.MethodPost, "/api/v1/activities/create_activity", map[string]any{"name": "L4", "parent_id": parent})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResult](t, rec).Detail, "depth exceeded")

	rec = env.do(t, http.MethodPost, "/api/v1/activities/create_activity", map[string]any{"parent_id": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "name is required", decodeBody[ErrorResult](t, rec).Detail)

	rec = env.do(t, http.MethodPost, "/api/v1/activities/create_activity", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/activities/create_activity", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/activities/abc", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/activities/404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuildings_CreateListDelete(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/buildings/create_building", map[string]any{
		"address":     "Lenina 1",
		"coordinates": map[string]float64{"lat": 54.7104, "lon": 20.511},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok": true, "created_id": 1}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/buildings/get_all_buildings", nil)
	assert.JSONEq(t, `[{"id": 1, "address": "Lenina 1", "coordinates": {"lat": 54.7104, "lon": 20.511}}]`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/buildings/create_building", map[string]any{
		"address":     "Nowhere",
		"coordinates": map[string]float64{"lat": 120, "lon": 0},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "coordinates.lat must be at most 90", decodeBody[ErrorResult](t, rec).Detail)

	rec = env.do(t, http.MethodPost, "/api/v1/buildings/create_building", map[string]any{"address": "No coords"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/buildings/1", nil)
	assert.JSONEq(t, `{"ok": true, "deleted_id": 1}`, rec.Body.String())
	rec = env.do(t, http.MethodDelete, "/api/v1/buildings/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrganizations_CreateReadUpdateDelete(t *testing.T) {
	env := newAPIEnv(t)
	env.seed(t)

	rec := env.do(t, http.MethodPost, "/api/v1/organizations/create_organization", map[string]any{
		"name":         "Horns and Hooves",
		"phones":       []string{"2-222-222", "3-333-333"},
		"building_id":  1,
		"activity_ids": []int64{1, 3},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := *decodeBody[MutationResult](t, rec).CreatedID
	assert.Equal(t, int64(4), id)

	rec = env.do(t, http.MethodGet, "/api/v1/organizations/4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	org := decodeBody[domain.Organization](t, rec)
	assert.Equal(t, "Horns and Hooves", org.Name)
	assert.Equal(t, domain.Phones{"2-222-222", "3-333-333"}, org.Phones)
	require.NotNil(t, org.Building)
	assert.Equal(t, int64(1), org.Building.ID)
	assert.ElementsMatch(t, []int64{1, 3}, org.ActivityIDs())

	rec = env.do(t, http.MethodPut, "/api/v1/organizations/update/4", map[string]any{
		"name":         "Horns and Hooves",
		"phones":       nil,
		"building_id":  2,
		"activity_ids": []int64{2},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	org = decodeBody[domain.Organization](t, rec)
	assert.Equal(t, int64(2), org.BuildingID)
	assert.Nil(t, org.Phones)
	assert.Equal(t, []int64{2}, org.ActivityIDs())

	rec = env.do(t, http.MethodGet, "/api/v1/organizations/by_name/Horns%20and%20Hooves", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(4), decodeBody[domain.Organization](t, rec).ID)

	rec = env.do(t, http.MethodDelete, "/api/v1/organizations/delete/4", nil)
	assert.JSONEq(t, `{"ok": true, "deleted_id": 4}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/organizations/4", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"ok": false, "detail": "organization 4 not found"}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/v1/organizations/delete/4", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrganizations_InvalidReferences(t *testing.T) {
	env := newAPIEnv(t)
	env.seed(t)

	body := map[string]any{"name": "Ghost", "building_id": 99, "activity_ids": []int64{1, 42}}
	rec := env.do(t, http.MethodPost, "/api/v1/organizations/create_organization", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"ok": false, "detail": "building 99 not found; activities [42] not found"}`, rec.Body.String())

	rec = env.do(t, http.MethodPut, "/api/v1/organizations/update/1", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/organizations/get_all_organizations", nil)
	assert.Len(t, decodeBody[[]domain.Organization](t, rec), 3)

	rec = env.do(t, http.MethodPost, "/api/v1/organizations/create_organization", map[string]any{"name": "No building"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "building_id is required", decodeBody[ErrorResult](t, rec).Detail)

	rec = env.do(t, http.MethodPost, "/api/v1/organizations/create_organization", map[string]any{"name": "No activities key", "building_id": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "activity_ids is required", decodeBody[ErrorResult](t, rec).Detail)

	rec = env.do(t, http.MethodPost, "/api/v1/organizations/create_organization", map[string]any{"name": "No activities", "building_id": 1, "activity_ids": []int64{}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/organizations/create_organization", `{"name": "x", "building_id": "one"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestOrganizations_Searches(t *testing.T) {
	env := newAPIEnv(t)
	env.seed(t)

	names := func(rec *httptest.ResponseRecorder) []string {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var out []string
		for _, o := range decodeBody[[]domain.Organization](t, rec) {
			out = append(out, o.Name)
		}
		return out
	}

	rec := env.do(t, http.MethodGet, "/api/v1/organizations/by_geo?lat_min=54.70&lon_min=20.50&lat_max=54.711&lon_max=20.52", nil)
	assert.Equal(t, []string{"Орг1"}, names(rec))

	rec = env.do(t, http.MethodGet, "/api/v1/organizations/by_geo?lat_min=54.70&lon_min=20.50&lat_max=54.71&lon_max=20.52", nil)
	assert.Empty(t, names(rec))

	rec = env.do(t, http.MethodGet, "/api/v1/organizations/by_geo?lat_min=54.70&lon_min=20.50&lat_max=54.71", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "lon_max is required", decodeBody[ErrorResult](t, rec).Detail)

	rec = env.do(t, http.MethodGet, "/api/v1/organizations/by_activity_name/Marketing", nil)
	assert.Equal(t, []string{"Орг3"}, names(rec))

	rec = env.do(t, http.MethodGet, "/api/v1/organizations/by_activity_name/Unknown", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/organizations/by_activity_id/3", nil)
	assert.Equal(t, []string{"Орг1"}, names(rec))

	rec = env.do(t, http.MethodGet, "/api/v1/organizations/get_organizations_by_building/2", nil)
	assert.Equal(t, []string{"Орг2"}, names(rec))
}

func TestOrganizations_Export(t *testing.T) {
	env := newAPIEnv(t)
	env.seed(t)

	rec := env.do(t, http.MethodGet, "/api/v1/organizations/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "organizations_")
	// xlsx is a zip archive
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestSystem_HealthzMetricsAndRequestID(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))

	rec = env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `moon_http_requests_total{method="GET",route="/healthz",status="200"} 2`), rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decodeBody[ErrorResult](t, rec).OK)
}

func TestClassify_ConstraintAndInternal(t *testing.T) {
	status, detail := classify(&repository.ConstraintError{Table: "organizations", Constraint: "organizations_building_id_fkey"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "constraint violation on organizations: organizations_building_id_fkey", detail)

	status, detail = classify(context.DeadlineExceeded)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", detail)
}
