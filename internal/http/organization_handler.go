package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gol43/test-moon/internal/domain"
	"github.com/gol43/test-moon/internal/service"
)

type organizationRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Phones      []string `json:"phones" validate:"omitempty,dive,required,max=32"`
	BuildingID  int64    `json:"building_id" validate:"required,gt=0"`
	ActivityIDs []int64  `json:"activity_ids" validate:"required,dive,gt=0"` // [] is allowed, a missing key is not
}

func (req *organizationRequest) input() service.OrganizationInput {
	return service.OrganizationInput{
		Name:        req.Name,
		Phones:      req.Phones,
		BuildingID:  req.BuildingID,
		ActivityIDs: req.ActivityIDs,
	}
}

// OrganizationHandler serves /organizations.
type OrganizationHandler struct {
	svc    *service.OrganizationService
	logger *zap.Logger
}

func (h *OrganizationHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.svc.FindOrganizations(r.Context())
	h.writeList(w, r, orgs, err)
}

func (h *OrganizationHandler) InBox(w http.ResponseWriter, r *http.Request) {
	var box domain.BoundingBox
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"lat_min", &box.LatMin},
		{"lon_min", &box.LonMin},
		{"lat_max", &box.LatMax},
		{"lon_max", &box.LonMax},
	} {
		v, err := queryFloat(r, p.name)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		*p.dst = v
	}
	orgs, err := h.svc.FindOrganizationsInBox(r.Context(), box)
	h.writeList(w, r, orgs, err)
}

// Create checks that the building and activities exist before writing anything.
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req organizationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.CheckReferences(r.Context(), req.BuildingID, req.ActivityIDs); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	id, err := h.svc.AddOrganizationWithActivities(r.Context(), req.input())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Created(id))
}

// Update returns the organization as stored after the change.
func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req organizationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.CheckReferences(r.Context(), req.BuildingID, req.ActivityIDs); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	org, err := h.svc.UpdateOrganization(r.Context(), id, req.input())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *OrganizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.DeleteOrganization(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Deleted(id))
}

func (h *OrganizationHandler) ByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeOne(w, r, id)
}

func (h *OrganizationHandler) ByName(w http.ResponseWriter, r *http.Request) {
	h.writeOne(w, r, chi.URLParam(r, "name"))
}

// ByActivityName matches the activity name exactly; children of a match are not included.
func (h *OrganizationHandler) ByActivityName(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.svc.FindOrganizationsByActivityName(r.Context(), chi.URLParam(r, "name"))
	h.writeList(w, r, orgs, err)
}

func (h *OrganizationHandler) ByActivityID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	orgs, err := h.svc.FindOrganizationsByActivityIDs(r.Context(), []int64{id})
	h.writeList(w, r, orgs, err)
}

func (h *OrganizationHandler) ByBuilding(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	orgs, err := h.svc.FindOrganizationsByBuildingID(r.Context(), id)
	h.writeList(w, r, orgs, err)
}

// Export downloads every organization as an xlsx workbook.
func (h *OrganizationHandler) Export(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.svc.FindOrganizations(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	data, err := GenerateOrganizationsExport(orgs)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	filename := fmt.Sprintf("organizations_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *OrganizationHandler) writeOne(w http.ResponseWriter, r *http.Request, key any) {
	org, err := h.svc.FindOneOrganization(r.Context(), key)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *OrganizationHandler) writeList(w http.ResponseWriter, r *http.Request, orgs []*domain.Organization, err error) {
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(orgs))
}
