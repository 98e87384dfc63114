package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes wires all page routes onto the mux. The root path uses
// an explicit match check because "/" otherwise swallows every path the
// mux has no pattern for.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.requireAuth(h.Dashboard))
	mux.HandleFunc("GET /analyses", h.requireAuth(h.Analyses))
	mux.HandleFunc("GET /analyses/{id}", h.requireAuth(h.Analysis))
	mux.HandleFunc("GET /playground", h.requireAuth(h.Playground))
	mux.HandleFunc("POST /playground/submit", h.requireAuth(h.PlaygroundSubmit))
	mux.HandleFunc("POST /playground/cancel", h.requireAuth(h.PlaygroundCancel))
	mux.HandleFunc("POST /playground/fix", h.requireAuth(h.PlaygroundFix))
	mux.HandleFunc("GET /compare", h.requireAuth(h.Compare))
	mux.HandleFunc("GET /leaderboard", h.requireAuth(h.Leaderboard))
	mux.HandleFunc("GET /settings", h.requireAuth(h.Settings))
	mux.HandleFunc("POST /settings", h.requireAuth(h.SettingsSave))
	mux.HandleFunc("POST /settings/autofix", h.requireAuth(h.SettingsAutoFix))
	mux.HandleFunc("POST /settings/token", h.requireAuth(h.SettingsMintToken))

	mux.HandleFunc("GET /login", h.redirectAuthed(h.Login))
	mux.HandleFunc("POST /login", h.LoginSubmit)
	mux.HandleFunc("GET /auth/complete", h.AuthComplete)
	mux.HandleFunc("POST /logout", h.Logout)

	static, err := fs.Sub(StaticFS, "static")
	if err != nil {
		panic("web: embedded static assets missing: " + err.Error())
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
}
