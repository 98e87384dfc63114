// Package web implements the HTML GUI driving adapter. Pages are rendered
// server-side from embedded templates; the playground page additionally
// polls the JSON API for workflow progress.
package web

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dkmv/dkmv/internal/application"
	"github.com/dkmv/dkmv/internal/domain/model"
	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// Handler is the web GUI driving adapter.
type Handler struct {
	session   *application.SessionService
	reviews   *application.ReviewService
	stats     *application.StatsService
	settings  *application.SettingsService
	workflows *application.WorkflowManager
	tokens    *application.TokenProvider
	backend   driven.ReviewBackend
	models    []string
	templates *template.Template
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies and parses
// the embedded templates.
func NewHandler(
	session *application.SessionService,
	reviews *application.ReviewService,
	stats *application.StatsService,
	settings *application.SettingsService,
	workflows *application.WorkflowManager,
	tokens *application.TokenProvider,
	backend driven.ReviewBackend,
	models []string,
	logger *slog.Logger,
) (*Handler, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &Handler{
		session:   session,
		reviews:   reviews,
		stats:     stats,
		settings:  settings,
		workflows: workflows,
		tokens:    tokens,
		backend:   backend,
		models:    models,
		templates: templates,
		logger:    logger,
	}, nil
}

// base assembles the common view fields for the current request.
func (h *Handler) base(w http.ResponseWriter, r *http.Request, title, active string) BaseView {
	return BaseView{
		Title:     title,
		Active:    active,
		User:      h.session.Current(),
		CSRFToken: csrfToken(w, r),
		Flash:     r.URL.Query().Get("flash"),
		Error:     r.URL.Query().Get("error"),
	}
}

// redirectWith redirects to path with a flash or error message attached.
func redirectWith(w http.ResponseWriter, r *http.Request, path, param, message string) {
	target := path
	if message != "" {
		target += "?" + param + "=" + url.QueryEscape(message)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Dashboard renders the landing page: recent own reviews, totals, the
// 7-day trend, and the top models by mean score.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	view := DashboardView{BaseView: h.base(w, r, "Dashboard", "dashboard")}

	overview, err := h.stats.Overview(r.Context())
	if err != nil {
		h.logger.Error("dashboard load failed", "error", err)
		view.LoadError = "Could not load dashboard data from the review backend."
		h.render(w, "dashboard.html", view)
		return
	}

	mine := model.FilterByIdentity(overview.Reviews, view.User.GitHubID)
	if len(mine) > 10 {
		mine = mine[:10]
	}

	view.MyReviews = mine
	view.TotalReviews = len(overview.Reviews)
	view.TotalUsers = len(overview.Users)
	view.Trend = application.Trend(overview.Reviews, 7, timeNow())
	topModels := application.AggregateByModel(overview.Reviews)
	if len(topModels) > 5 {
		topModels = topModels[:5]
	}
	view.TopModels = topModels

	h.render(w, "dashboard.html", view)
}

// Analyses renders the user's review history. The listing is re-fetched
// on every visit; there is no cross-page cache to invalidate.
func (h *Handler) Analyses(w http.ResponseWriter, r *http.Request) {
	view := AnalysesView{BaseView: h.base(w, r, "Analyses", "analyses")}

	reviews, err := h.reviews.Mine(r.Context(), view.User.GitHubID, 0)
	if err != nil {
		h.logger.Error("analyses load failed", "error", err)
		view.LoadError = "Could not load your reviews. Use retry to reload."
		h.render(w, "analyses.html", view)
		return
	}

	view.Reviews = reviews
	h.render(w, "analyses.html", view)
}

// Analysis renders one review in detail.
func (h *Handler) Analysis(w http.ResponseWriter, r *http.Request) {
	view := AnalysisView{BaseView: h.base(w, r, "Analysis", "analyses")}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	review, err := h.reviews.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("analysis load failed", "id", id, "error", err)
		view.LoadError = "Could not load this review. Use retry to reload."
		h.render(w, "analysis.html", view)
		return
	}

	view.Review = review
	h.render(w, "analysis.html", view)
}

// Playground renders the submission page with the current run snapshot.
func (h *Handler) Playground(w http.ResponseWriter, r *http.Request) {
	view := PlaygroundView{BaseView: h.base(w, r, "Playground", "playground")}
	view.Models = h.models
	view.Run = h.workflows.For(view.User.GitHubID).Snapshot()

	settings, err := h.settings.Get(r.Context(), view.User.GitHubID)
	if err != nil {
		h.logger.Warn("settings load failed, using defaults", "error", err)
		view.Selected = h.models[0]
	} else {
		view.Selected = settings.PreferredModel
	}

	h.render(w, "playground.html", view)
}

// PlaygroundSubmit is the non-JS fallback for starting a run.
func (h *Handler) PlaygroundSubmit(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		redirectWith(w, r, "/playground", "error", "invalid form token")
		return
	}

	identity := h.session.Current()
	wf := h.workflows.For(identity.GitHubID)
	err := wf.Submit(identity, r.FormValue("code"), r.FormValue("model"), r.FormValue("language"))
	if err != nil {
		redirectWith(w, r, "/playground", "error", err.Error())
		return
	}

	http.Redirect(w, r, "/playground", http.StatusSeeOther)
}

// PlaygroundCancel aborts the in-flight run.
func (h *Handler) PlaygroundCancel(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		redirectWith(w, r, "/playground", "error", "invalid form token")
		return
	}

	h.workflows.For(h.session.Current().GitHubID).Cancel()
	http.Redirect(w, r, "/playground", http.StatusSeeOther)
}

// PlaygroundFix requests a fix suggestion for the fetched review.
func (h *Handler) PlaygroundFix(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		redirectWith(w, r, "/playground", "error", "invalid form token")
		return
	}

	if err := h.workflows.For(h.session.Current().GitHubID).RequestFix(r.Context()); err != nil {
		redirectWith(w, r, "/playground", "error", err.Error())
		return
	}
	http.Redirect(w, r, "/playground", http.StatusSeeOther)
}

// Compare renders the per-model comparison page.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	view := CompareView{BaseView: h.base(w, r, "Compare", "compare")}

	reviews, err := h.reviews.List(r.Context(), 0)
	if err != nil {
		h.logger.Error("compare load failed", "error", err)
		view.LoadError = "Could not load reviews for comparison. Use retry to reload."
		h.render(w, "compare.html", view)
		return
	}
	view.Aggregates = application.AggregateByModel(reviews)

	// Backend aggregates are supplementary; their failure does not blank
	// the page since the panel-side summary already rendered.
	if backendStats, err := h.stats.ByModel(r.Context()); err != nil {
		h.logger.Warn("backend model stats unavailable", "error", err)
	} else {
		view.Backend = backendStats
	}

	h.render(w, "compare.html", view)
}

// Leaderboard renders users ranked by mean quality score.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	view := LeaderboardView{BaseView: h.base(w, r, "Leaderboard", "leaderboard")}

	overview, err := h.stats.Overview(r.Context())
	if err != nil {
		h.logger.Error("leaderboard load failed", "error", err)
		view.LoadError = "Could not load leaderboard data. Use retry to reload."
		h.render(w, "leaderboard.html", view)
		return
	}

	byID := make(map[string]model.Identity, len(overview.Users))
	for _, user := range overview.Users {
		byID[user.GitHubID] = user
	}

	aggregates := application.AggregateByUser(overview.Reviews)
	rows := make([]LeaderboardRow, 0, len(aggregates))
	for i, agg := range aggregates {
		row := LeaderboardRow{
			Rank:   i + 1,
			Login:  agg.Key,
			Count:  agg.Count,
			Mean:   agg.Mean,
			Median: agg.Median,
		}
		if user, ok := byID[agg.Key]; ok {
			row.Login = user.Login
			row.Name = user.Name
			row.AvatarURL = user.AvatarURL
		}
		rows = append(rows, row)
	}

	view.Rows = rows
	h.render(w, "leaderboard.html", view)
}

// Settings renders the settings page.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	h.renderSettings(w, r, "")
}

func (h *Handler) renderSettings(w http.ResponseWriter, r *http.Request, mintedToken string) {
	view := SettingsView{BaseView: h.base(w, r, "Settings", "settings")}
	view.Models = h.models
	view.MintedToken = mintedToken

	settings, err := h.settings.Get(r.Context(), view.User.GitHubID)
	if err != nil {
		h.logger.Error("settings load failed", "error", err)
		view.Error = "Could not load settings."
		h.render(w, "settings.html", view)
		return
	}

	view.Settings = settings
	h.render(w, "settings.html", view)
}

// SettingsSave writes preferred model and theme.
func (h *Handler) SettingsSave(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		redirectWith(w, r, "/settings", "error", "invalid form token")
		return
	}

	identity := h.session.Current()
	current, err := h.settings.Get(r.Context(), identity.GitHubID)
	if err != nil {
		redirectWith(w, r, "/settings", "error", "could not load settings")
		return
	}

	current.PreferredModel = r.FormValue("preferred_model")
	current.Theme = r.FormValue("theme")
	if err := h.settings.Update(r.Context(), current); err != nil {
		h.logger.Error("settings save failed", "error", err)
		redirectWith(w, r, "/settings", "error", "could not save settings")
		return
	}

	redirectWith(w, r, "/settings", "flash", "Settings saved.")
}

// SettingsAutoFix flips the auto-fix toggle. On a failed store write the
// service restores the pre-image, so the page re-renders the old value
// alongside the error.
func (h *Handler) SettingsAutoFix(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		redirectWith(w, r, "/settings", "error", "invalid form token")
		return
	}

	enabled := r.FormValue("auto_fix") == "on"
	if _, err := h.settings.SetAutoFix(r.Context(), h.session.Current().GitHubID, enabled); err != nil {
		redirectWith(w, r, "/settings", "error", "could not save auto-fix; setting reverted")
		return
	}

	redirectWith(w, r, "/settings", "flash", "Auto-fix updated.")
}

// SettingsMintToken mints an editor-integration token and shows it once.
func (h *Handler) SettingsMintToken(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		redirectWith(w, r, "/settings", "error", "invalid form token")
		return
	}

	token, err := h.backend.MintVSCodeToken(r.Context())
	if err != nil {
		h.logger.Warn("vscode token mint failed", "error", err)
		redirectWith(w, r, "/settings", "error", "could not mint token: "+err.Error())
		return
	}

	h.renderSettings(w, r, token)
}

// Login renders the sign-in page. Authenticated users are redirected to
// the dashboard.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	view := LoginView{BaseView: h.base(w, r, "Sign in", "")}
	view.LoginURL = h.backend.LoginURL()

	// The user directory powers the debug sign-in selector. Its failure
	// leaves GitHub sign-in available, so it is not a page error.
	if users, err := h.backend.ListUsers(r.Context()); err != nil {
		h.logger.Debug("user listing unavailable for login page", "error", err)
	} else {
		view.Users = users
	}

	h.render(w, "login.html", view)
}

// LoginSubmit performs the debug mint sign-in: mints a token for the
// chosen login, stores it, and re-syncs the session.
func (h *Handler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		redirectWith(w, r, "/login", "error", "invalid form token")
		return
	}

	login := r.FormValue("login")
	if login == "" {
		redirectWith(w, r, "/login", "error", "choose a login to sign in as")
		return
	}

	token, err := h.backend.MintDebugToken(r.Context(), login)
	if err != nil {
		h.logger.Warn("debug mint failed", "login", login, "error", err)
		redirectWith(w, r, "/login", "error", "sign-in failed: "+err.Error())
		return
	}

	h.tokens.Replace(r.Context(), token)
	if identity := h.session.Refresh(r.Context()); identity == nil {
		h.tokens.Clear(r.Context())
		redirectWith(w, r, "/login", "error", "sign-in failed: token rejected")
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// AuthComplete is the login-completion landing route. The backend's OAuth
// flow redirects here when it finishes; each hit just re-syncs the
// session, so repeated deliveries are harmless.
func (h *Handler) AuthComplete(w http.ResponseWriter, r *http.Request) {
	h.session.Refresh(r.Context())
	if h.session.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	redirectWith(w, r, "/login", "error", "sign-in did not complete")
}

// Logout clears the session and returns to the login page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		redirectWith(w, r, "/", "error", "invalid form token")
		return
	}

	h.session.Logout(r.Context())
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
