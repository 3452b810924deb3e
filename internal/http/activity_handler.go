package httpapi

import (
	"net/http"

	"github.com/gol43/test-moon/internal/service"

	"go.uber.org/zap"
)

type activityCreateRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

type activityUpdateRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// ActivityHandler serves /activities.
type ActivityHandler struct {
	svc    *service.ActivityService
	logger *zap.Logger
}

func (h *ActivityHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.FindActivities(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req activityCreateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	id, err := h.svc.AddActivity(r.Context(), req.Name, req.ParentID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Created(id))
}

func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req activityUpdateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	updated, err := h.svc.UpdateActivity(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Updated(updated))
}

func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.DeleteActivity(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Deleted(id))
}

// decode reads a JSON body into req and validates its tags.
func decode(r *http.Request, req any) error {
	if err := readBodyJSON(r, maxBodyBytes, req); err != nil {
		return err
	}
	return validateStruct(req)
}
