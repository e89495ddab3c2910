package tool

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/quipper/poc/lti/tool/pkg/common/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		logger.Error("render %s: %v", name, err)
	}
}
