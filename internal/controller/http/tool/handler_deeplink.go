package tool

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/quipper/poc/lti/tool/internal/lti"
	"github.com/quipper/poc/lti/tool/pkg/common/logger"
)

// completeDeepLink finalizes a deep-link configuration choice: the teacher
// picked a special word, and we send back one resource whose launches will
// carry it as a custom parameter.
func (h *Handler) completeDeepLink(w http.ResponseWriter, r *http.Request) {
	launch, err := h.tool.LaunchFromCache(r.Context(), lti.LaunchIDFromRequest(r))
	if err != nil {
		h.launchCacheError(w, err)
		return
	}

	dl, err := h.tool.DeepLink(launch)
	if err != nil {
		if errors.Is(err, lti.ErrNotDeepLink) {
			http.Error(w, "Must be a deep link!", http.StatusForbidden)
			return
		}
		logger.Error("completeDeepLink: %v", err)
		http.Error(w, "deep link completion failed", http.StatusInternalServerError)
		return
	}

	specialWord := r.PostFormValue("special-word")
	resource := lti.DeepLinkResource{
		URL:          h.cfg.LaunchURL(),
		Title:        fmt.Sprintf("Activity with the special word %q", specialWord),
		CustomParams: map[string]string{"special_word": specialWord},
	}

	page, err := dl.ResponseForm([]lti.DeepLinkResource{resource})
	if err != nil {
		logger.Error("completeDeepLink: response form: %v", err)
		http.Error(w, "deep link completion failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
	logger.Debug("completeDeepLink: returned resource word=%q launch=%s", specialWord, launch.ID)
}

// launchCacheError maps cache misses to 403; the launch id is the caller's
// only credential for these endpoints.
func (h *Handler) launchCacheError(w http.ResponseWriter, err error) {
	if errors.Is(err, lti.ErrLaunchNotFound) {
		http.Error(w, "Unknown or expired launch.", http.StatusForbidden)
		return
	}
	logger.Error("launch cache: %v", err)
	http.Error(w, "failed to load launch", http.StatusInternalServerError)
}
