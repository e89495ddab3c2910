package tool

import (
	"net/http"

	"github.com/quipper/poc/lti/tool/internal/lti"
	"github.com/quipper/poc/lti/tool/pkg/common/logger"
)

const pageTitle = "LTI 1.3 example"

// launchPage is the template context for the role-specific launch pages.
type launchPage struct {
	PageTitle   string
	LaunchID    string
	UserName    string
	SpecialWord string
	MessageType string
	LaunchData  map[string]any
}

// launch validates the incoming launch POST and renders the page matching
// the caller's role and launch type: deep_link for teachers configuring a
// link, teacher for regular instructor launches, student for learners.
func (h *Handler) launch(w http.ResponseWriter, r *http.Request) {
	launch, err := h.tool.LaunchFromRequest(r)
	if err != nil {
		logger.Error("launch: %v", err)
		http.Error(w, "launch validation failed", http.StatusInternalServerError)
		return
	}
	h.renderLaunch(w, launch)
}

func (h *Handler) renderLaunch(w http.ResponseWriter, launch *lti.LaunchState) {
	roles := launch.Roles()
	var name string
	switch {
	case lti.IsTeacher(roles) || lti.IsTeachingAssistant(roles):
		if launch.IsDeepLinkLaunch() {
			name = "deep_link.html"
		} else {
			name = "teacher.html"
		}
	case lti.IsStudent(roles):
		name = "student.html"
	default:
		logger.Error("launch: unknown role set %v", roles)
		http.Error(w, "You have an unknown role.", http.StatusInternalServerError)
		return
	}

	h.render(w, name, launchPage{
		PageTitle:   pageTitle,
		LaunchID:    launch.ID,
		UserName:    launch.Name(),
		SpecialWord: launch.CustomClaim("special_word"),
		MessageType: launch.MessageType(),
		LaunchData:  launch.Claims,
	})
}
