package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/gol43/test-moon/internal/repository"
	"github.com/gol43/test-moon/internal/service"
)

// Deps are the collaborators the API is built from.
type Deps struct {
	Activities    *service.ActivityService
	Buildings     *service.BuildingService
	Organizations *service.OrganizationService
	Seed          *service.SeedService
	Store         repository.Store
	Metrics       *Metrics // nil disables /metrics
	Logger        *zap.Logger

	BasePath    string // defaults to /api/v1
	CORSOrigins []string
}

// NewRouter wires every route under BasePath plus /healthz and /metrics at the root.
func NewRouter(d Deps) http.Handler {
	if d.BasePath == "" {
		d.BasePath = "/api/v1"
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(d.Logger, d.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(d.CORSOrigins)))
	r.Use(middleware.Timeout(30 * time.Second))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, Fail("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, Fail("method not allowed"))
	})

	system := &SystemHandler{seed: d.Seed, store: d.Store, logger: d.Logger}
	r.Get("/healthz", system.Healthz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	activities := &ActivityHandler{svc: d.Activities, logger: d.Logger}
	buildings := &BuildingHandler{svc: d.Buildings, logger: d.Logger}
	organizations := &OrganizationHandler{svc: d.Organizations, logger: d.Logger}

	r.Route(d.BasePath, func(r chi.Router) {
		r.Post("/init_db", system.InitDB)

		r.Route("/activities", func(r chi.Router) {
			r.Get("/get_all_activities", activities.GetAll)
			r.Post("/create_activity", activities.Create)
			r.Put("/{id}", activities.Update)
			r.Delete("/{id}", activities.Delete)
		})

		r.Route("/buildings", func(r chi.Router) {
			r.Get("/get_all_buildings", buildings.GetAll)
			r.Post("/create_building", buildings.Create)
			r.Delete("/{id}", buildings.Delete)
		})

		r.Route("/organizations", func(r chi.Router) {
			r.Get("/by_geo", organizations.InBox)
			r.Get("/get_all_organizations", organizations.GetAll)
			r.Get("/export", organizations.Export)
			r.Post("/create_organization", organizations.Create)
			r.Put("/update/{id}", organizations.Update)
			r.Delete("/delete/{id}", organizations.Delete)
			r.Get("/by_name/{name}", organizations.ByName)
			r.Get("/by_activity_name/{name}", organizations.ByActivityName)
			r.Get("/by_activity_id/{id}", organizations.ByActivityID)
			r.Get("/get_organizations_by_building/{id}", organizations.ByBuilding)
			r.Get("/{id}", organizations.ByID)
		})
	})

	return r
}

func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Content-Disposition"},
		MaxAge:         300,
	}
	// credentials cannot be combined with a wildcard origin
	opts.AllowCredentials = !(len(origins) == 1 && origins[0] == "*")
	return opts
}
