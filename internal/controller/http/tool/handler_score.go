package tool

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quipper/poc/lti/tool/internal/lti"
	"github.com/quipper/poc/lti/tool/pkg/common/logger"
)

// setScore reports a score back to the platform's grade service. The
// launch id comes only from the URL path; there is no POST override here.
//
// A grade-service failure is reported in the JSON body with success=false
// while the HTTP status stays 200: this surface is polled by page scripts
// that inspect the payload, not the status code.
func (h *Handler) setScore(w http.ResponseWriter, r *http.Request) {
	launch, err := h.tool.LaunchFromCache(r.Context(), chi.URLParam(r, "launch_id"))
	if err != nil {
		h.launchCacheError(w, err)
		return
	}
	if !launch.HasAGS() {
		http.Error(w, "This launch doesn't provide a grades service!", http.StatusForbidden)
		return
	}

	_ = r.ParseForm()
	score, err := strconv.Atoi(r.PostFormValue("score"))
	if err != nil {
		http.Error(w, "invalid or missing score", http.StatusInternalServerError)
		return
	}

	ags, err := h.tool.AGS(r.Context(), launch)
	if err != nil {
		logger.Error("setScore: %v", err)
		http.Error(w, "grade service unavailable", http.StatusInternalServerError)
		return
	}

	grade := lti.Grade{
		ScoreGiven:       float64(score),
		ScoreMaximum:     100,
		Timestamp:        time.Now().UTC().Format("2006-01-02T15:04:05") + "Z",
		ActivityProgress: r.PostFormValue("activity-progress"),
		GradingProgress:  r.PostFormValue("grading-progress"),
		UserID:           launch.Sub(),
	}

	var result string
	if ags.CanCreateLineItem() {
		lineItem := lti.LineItem{
			Tag:          "score",
			ScoreMaximum: 100,
			Label:        "Score",
		}
		if rl := launch.ResourceLinkID(); rl != "" {
			lineItem.ResourceID = rl
		}
		result, err = ags.PutGradeToLineItem(r.Context(), grade, lineItem)
	} else {
		result, err = ags.PutGrade(r.Context(), grade)
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		logger.Warn("setScore: grade submission failed: %v", err)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "result": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "result": result})
}
