package tool

import (
	"net/http"

	"github.com/quipper/poc/lti/tool/internal/lti"
	"github.com/quipper/poc/lti/tool/pkg/common/logger"
)

// login handles OIDC third-party initiated login from the platform.
// Accepts GET and POST; the target redirect URL is required.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	targetLinkURI := firstNonEmpty(r.PostFormValue("target_link_uri"), r.URL.Query().Get("target_link_uri"))
	if targetLinkURI == "" {
		http.Error(w, `missing "target_link_uri" param`, http.StatusInternalServerError)
		return
	}
	params := lti.LoginParams{
		Issuer:         firstNonEmpty(r.PostFormValue("iss"), r.URL.Query().Get("iss")),
		ClientID:       firstNonEmpty(r.PostFormValue("client_id"), r.URL.Query().Get("client_id")),
		LoginHint:      firstNonEmpty(r.PostFormValue("login_hint"), r.URL.Query().Get("login_hint")),
		LTIMessageHint: firstNonEmpty(r.PostFormValue("lti_message_hint"), r.URL.Query().Get("lti_message_hint")),
		TargetLinkURI:  targetLinkURI,
	}

	redirect, err := h.tool.BeginLogin(r.Context(), params)
	if err != nil {
		logger.Error("login: %v", err)
		http.Error(w, "login initiation failed", http.StatusInternalServerError)
		return
	}

	// Cookie-capability check: set the state cookie, then serve a page that
	// verifies it is readable before following the redirect.
	http.SetCookie(w, redirect.StateCookie)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(lti.CheckCookiesPage(redirect.AuthURL)))
	logger.Debug("login: initiated iss=%s target=%s", params.Issuer, targetLinkURI)
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
