package tool

import (
	"net/http"

	"github.com/quipper/poc/lti/tool/internal/lti"
	"github.com/quipper/poc/lti/tool/pkg/common/logger"
)

// register handles LTI dynamic registration initiated from the platform's
// admin UI. The platform opens this URL with its discovery document and an
// optional bearer token; we complete the handshake and close the window.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	openidConfigURL := r.URL.Query().Get("openid_configuration")
	if openidConfigURL == "" {
		http.Error(w, `missing "openid_configuration" param`, http.StatusInternalServerError)
		return
	}
	registrationToken := r.URL.Query().Get("registration_token")

	platform, err := h.tool.RegisterPlatform(r.Context(), openidConfigURL, registrationToken)
	if err != nil {
		logger.Error("register: %v", err)
		http.Error(w, "dynamic registration failed", http.StatusInternalServerError)
		return
	}

	logger.Info("register: completed for iss=%s", platform.Issuer)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(lti.RegistrationCompleteHTML()))
}
