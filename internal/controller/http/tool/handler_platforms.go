package tool

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quipper/poc/lti/tool/pkg/common/logger"
	platformsRepo "github.com/quipper/poc/lti/tool/pkg/repositories/platforms"
)

// Admin CRUD over platform registrations, for setups where dynamic
// registration is unavailable and a platform must be wired in by hand.

func (h *Handler) listPlatforms(w http.ResponseWriter, r *http.Request) {
	list, err := h.platforms.ListPlatforms(r.Context())
	if err != nil {
		logger.Error("listPlatforms: %v", err)
		http.Error(w, "failed to list platforms", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *Handler) createPlatform(w http.ResponseWriter, r *http.Request) {
	var p platformsRepo.Platform
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if p.Issuer == "" || p.ClientID == "" || p.AuthLoginURL == "" || p.AuthTokenURL == "" || p.KeySetURL == "" {
		http.Error(w, "issuer, client_id, auth_login_url, auth_token_url and key_set_url are required", http.StatusBadRequest)
		return
	}
	id, err := h.platforms.RegisterPlatform(r.Context(), &p)
	if err != nil {
		logger.Error("createPlatform: %v", err)
		http.Error(w, "failed to register platform", http.StatusInternalServerError)
		return
	}
	p.ID = id
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(&p)
	logger.Info("createPlatform: registered iss=%s client_id=%s id=%d", p.Issuer, p.ClientID, id)
}

func (h *Handler) getPlatformByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid platform id", http.StatusBadRequest)
		return
	}
	p, err := h.platforms.GetPlatformByID(r.Context(), id)
	if err != nil {
		logger.Error("getPlatformByID: %v", err)
		http.Error(w, "failed to get platform", http.StatusInternalServerError)
		return
	}
	if p == nil {
		http.Error(w, "platform not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p)
}

func (h *Handler) deletePlatformByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid platform id", http.StatusBadRequest)
		return
	}
	if err := h.platforms.DeletePlatformByID(r.Context(), id); err != nil {
		logger.Error("deletePlatformByID: %v", err)
		http.Error(w, "failed to delete platform", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	logger.Info("deletePlatformByID: removed id=%d", id)
}
