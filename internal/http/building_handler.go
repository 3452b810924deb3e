package httpapi

import (
	"net/http"

	"github.com/gol43/test-moon/internal/domain"
	"github.com/gol43/test-moon/internal/service"

	"go.uber.org/zap"
)

type coordinatesRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

type buildingCreateRequest struct {
	Address     string              `json:"address" validate:"required"`
	Coordinates *coordinatesRequest `json:"coordinates" validate:"required"`
}

// BuildingHandler serves /buildings.
type BuildingHandler struct {
	svc    *service.BuildingService
	logger *zap.Logger
}

func (h *BuildingHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.FindBuildings(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (h *BuildingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req buildingCreateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	coords := domain.Coordinates{Lat: *req.Coordinates.Lat, Lon: *req.Coordinates.Lon}
	id, err := h.svc.AddBuilding(r.Context(), req.Address, coords)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Created(id))
}

func (h *BuildingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.DeleteBuilding(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Deleted(id))
}
