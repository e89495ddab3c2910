package tool

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quipper/poc/lti/tool/internal/lti"
	"github.com/quipper/poc/lti/tool/pkg/common/config"
	platformsRepo "github.com/quipper/poc/lti/tool/pkg/repositories/platforms"
)

// Handler wires the LTI tool endpoints. Each view is thin: extract request
// parameters, call the protocol layer, render a response.
type Handler struct {
	cfg       *config.Config
	tool      *lti.Tool
	platforms platformsRepo.Repository
}

func NewHandler(cfg *config.Config, t *lti.Tool, platforms platformsRepo.Repository) *Handler {
	return &Handler{cfg: cfg, tool: t, platforms: platforms}
}

// Router returns the chi router for all tool endpoints.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/health", h.health)

	// LTI protocol surface
	r.Get("/login/", h.login)
	r.Post("/login/", h.login)
	r.Get("/register/", h.register)
	r.Post("/launch/", h.launch)
	r.Get("/jwks/", h.jwks)
	r.Post("/complete-deep-link/", h.completeDeepLink)
	r.Post("/api/score/{launch_id}/", h.setScore)
	r.Get("/scoreboard/{launch_id}/", h.scoreboard)
	r.Get("/launch-data/{launch_id}/", h.launchData)

	// Platform registration admin (list/get/create/delete)
	r.Get("/api/platforms", h.listPlatforms)
	r.Post("/api/platforms", h.createPlatform)
	r.Get("/api/platforms/{id}", h.getPlatformByID)
	r.Delete("/api/platforms/{id}", h.deletePlatformByID)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.platforms.Health(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "unhealthy", "error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// jwks publishes the tool's public key set. Read-only; platforms fetch this
// to verify our deep-link responses and client assertions.
func (h *Handler) jwks(w http.ResponseWriter, r *http.Request) {
	data, err := h.tool.Keys().JWKSJSON()
	if err != nil {
		http.Error(w, "failed to get JWKS", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
