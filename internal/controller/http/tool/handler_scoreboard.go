package tool

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quipper/poc/lti/tool/internal/lti"
	"github.com/quipper/poc/lti/tool/pkg/common/logger"
)

// scoreboardRow joins one roster member with their recorded score, if any.
type scoreboardRow struct {
	Name      string
	IsTeacher bool
	IsStudent bool
	Score     *float64
}

type scoreboardPage struct {
	PageTitle string
	LaunchID  string
	Rows      []scoreboardRow
}

// scoreboard renders the context roster with each member's score. Needs
// both the roster service and the grade service from the launch.
func (h *Handler) scoreboard(w http.ResponseWriter, r *http.Request) {
	launch, err := h.tool.LaunchFromCache(r.Context(), chi.URLParam(r, "launch_id"))
	if err != nil {
		h.launchCacheError(w, err)
		return
	}
	if !launch.HasNRPS() {
		http.Error(w, "This launch doesn't provide a names and roles service!", http.StatusForbidden)
		return
	}
	if !launch.HasAGS() {
		http.Error(w, "This launch doesn't provide a grades service!", http.StatusForbidden)
		return
	}

	nrps, err := h.tool.NRPS(r.Context(), launch)
	if err != nil {
		logger.Error("scoreboard: roster service: %v", err)
		http.Error(w, "roster service unavailable", http.StatusInternalServerError)
		return
	}
	members, err := nrps.GetMembers(r.Context())
	if err != nil {
		logger.Error("scoreboard: get members: %v", err)
		http.Error(w, "failed to fetch roster", http.StatusInternalServerError)
		return
	}

	ags, err := h.tool.AGS(r.Context(), launch)
	if err != nil {
		logger.Error("scoreboard: grade service: %v", err)
		http.Error(w, "grade service unavailable", http.StatusInternalServerError)
		return
	}
	var results []lti.Result
	if ags.CanCreateLineItem() {
		lineItem := lti.LineItem{Tag: "score", ScoreMaximum: 100, Label: "Score"}
		if rl := launch.ResourceLinkID(); rl != "" {
			lineItem.ResourceID = rl
		}
		li, err := ags.FindOrCreateLineItem(r.Context(), lineItem)
		if err != nil {
			logger.Error("scoreboard: line item: %v", err)
			http.Error(w, "failed to fetch grades", http.StatusInternalServerError)
			return
		}
		results, err = ags.GetGradesForLineItem(r.Context(), li)
		if err != nil {
			logger.Error("scoreboard: get grades: %v", err)
			http.Error(w, "failed to fetch grades", http.StatusInternalServerError)
			return
		}
	} else {
		results, err = ags.GetGrades(r.Context())
		if err != nil {
			logger.Error("scoreboard: get grades: %v", err)
			http.Error(w, "failed to fetch grades", http.StatusInternalServerError)
			return
		}
	}

	scoreByUser := make(map[string]*float64, len(results))
	for i := range results {
		scoreByUser[results[i].UserID] = results[i].ResultScore
	}

	rows := make([]scoreboardRow, 0, len(members))
	for _, m := range members {
		rows = append(rows, scoreboardRow{
			Name:      m.Name,
			IsTeacher: lti.IsTeacher(m.Roles),
			IsStudent: lti.IsStudent(m.Roles),
			Score:     scoreByUser[m.UserID],
		})
	}

	h.render(w, "scoreboard.html", scoreboardPage{
		PageTitle: pageTitle,
		LaunchID:  launch.ID,
		Rows:      rows,
	})
}
