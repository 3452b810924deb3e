package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gol43/test-moon/internal/repository"
	"github.com/gol43/test-moon/internal/service"
)

// SystemHandler serves the health probe and the demo data reset.
type SystemHandler struct {
	seed   *service.SeedService
	store  repository.Store
	logger *zap.Logger
}

// Healthz reports 200 when storage answers a ping within two seconds.
func (h *SystemHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "storage": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "storage": "ok"})
}

// InitDB drops all data and loads the demo directory.
func (h *SystemHandler) InitDB(w http.ResponseWriter, r *http.Request) {
	if err := h.seed.Seed(r.Context()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "database seeded"})
}
