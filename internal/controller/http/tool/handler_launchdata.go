package tool

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quipper/poc/lti/tool/pkg/common/logger"
)

type launchDataPage struct {
	PageTitle  string
	LaunchID   string
	LaunchJSON string
}

// launchData renders the validated launch claims as formatted JSON. Debug
// view; useful when wiring a new platform.
func (h *Handler) launchData(w http.ResponseWriter, r *http.Request) {
	launch, err := h.tool.LaunchFromCache(r.Context(), chi.URLParam(r, "launch_id"))
	if err != nil {
		h.launchCacheError(w, err)
		return
	}

	pretty, err := json.MarshalIndent(launch.Claims, "", "  ")
	if err != nil {
		logger.Error("launchData: marshal claims: %v", err)
		http.Error(w, "failed to render launch data", http.StatusInternalServerError)
		return
	}
	h.render(w, "launch_data.html", launchDataPage{
		PageTitle:  pageTitle,
		LaunchID:   launch.ID,
		LaunchJSON: string(pretty),
	})
}
