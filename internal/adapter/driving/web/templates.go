package web

import (
	"bytes"
	"html/template"
	"net/http"
	"time"
)

// parseTemplates parses all embedded page templates with the shared
// function map.
func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"markdown": func(src string) template.HTML {
			return template.HTML(RenderMarkdown(src))
		},
		"scoreClass": ScoreClass,
		"datefmt": func(t time.Time) string {
			if t.IsZero() {
				return "—"
			}
			return t.UTC().Format("2006-01-02 15:04")
		},
		"pct": func(v float64) string {
			return template.HTMLEscapeString(formatScore(v))
		},
	}

	return template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
}

// render executes the named template into a buffer first so a rendering
// error never produces a half-written response.
func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
