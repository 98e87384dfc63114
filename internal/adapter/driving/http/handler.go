// Package httphandler is the JSON API driving adapter. The playground's
// progress UI polls it for workflow snapshots; everything else mirrors the
// page data for programmatic use.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dkmv/dkmv/internal/application"
	"github.com/dkmv/dkmv/internal/domain/model"
	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	session   *application.SessionService
	workflows *application.WorkflowManager
	reviews   *application.ReviewService
	stats     *application.StatsService
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	session *application.SessionService,
	workflows *application.WorkflowManager,
	reviews *application.ReviewService,
	stats *application.StatsService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		session:   session,
		workflows: workflows,
		reviews:   reviews,
		stats:     stats,
		logger:    logger,
	}
}

// RegisterAPIRoutes registers all API routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/me", h.Me)
	mux.HandleFunc("GET /api/v1/workflow", h.WorkflowState)
	mux.HandleFunc("POST /api/v1/workflow/submit", h.WorkflowSubmit)
	mux.HandleFunc("POST /api/v1/workflow/cancel", h.WorkflowCancel)
	mux.HandleFunc("POST /api/v1/workflow/fix", h.WorkflowFix)
	mux.HandleFunc("GET /api/v1/reviews", h.ListReviews)
	mux.HandleFunc("GET /api/v1/reviews/{id}", h.GetReview)
	mux.HandleFunc("GET /api/v1/stats/models", h.StatsByModel)
	mux.HandleFunc("GET /api/v1/stats/users", h.StatsByUser)
}

// identity resolves the session identity or writes a 401.
func (h *Handler) identity(w http.ResponseWriter) *model.Identity {
	identity := h.session.Current()
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return nil
	}
	return identity
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// Me returns the current session identity.
func (h *Handler) Me(w http.ResponseWriter, _ *http.Request) {
	identity := h.identity(w)
	if identity == nil {
		return
	}
	writeJSON(w, http.StatusOK, toIdentityResponse(*identity))
}

// WorkflowState returns the current workflow run snapshot.
func (h *Handler) WorkflowState(w http.ResponseWriter, _ *http.Request) {
	identity := h.identity(w)
	if identity == nil {
		return
	}

	snapshot := h.workflows.For(identity.GitHubID).Snapshot()
	writeJSON(w, http.StatusOK, toWorkflowResponse(snapshot))
}

// WorkflowSubmit starts a review submission run.
func (h *Handler) WorkflowSubmit(w http.ResponseWriter, r *http.Request) {
	identity := h.identity(w)
	if identity == nil {
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wf := h.workflows.For(identity.GitHubID)
	err := wf.Submit(identity, req.Code, req.Model, req.Language)

	var validationErr *application.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusUnprocessableEntity, validationErr.Reason)
		return
	case errors.Is(err, application.ErrSubmissionInFlight):
		// A no-op per the re-entrancy rule; report the live run instead.
		writeJSON(w, http.StatusConflict, toWorkflowResponse(wf.Snapshot()))
		return
	case err != nil:
		h.logger.Error("workflow submit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusAccepted, toWorkflowResponse(wf.Snapshot()))
}

// WorkflowCancel aborts the in-flight run, if any.
func (h *Handler) WorkflowCancel(w http.ResponseWriter, _ *http.Request) {
	identity := h.identity(w)
	if identity == nil {
		return
	}

	wf := h.workflows.For(identity.GitHubID)
	wf.Cancel()
	writeJSON(w, http.StatusOK, toWorkflowResponse(wf.Snapshot()))
}

// WorkflowFix requests a fix suggestion for the fetched review.
func (h *Handler) WorkflowFix(w http.ResponseWriter, r *http.Request) {
	identity := h.identity(w)
	if identity == nil {
		return
	}

	wf := h.workflows.For(identity.GitHubID)
	if err := wf.RequestFix(r.Context()); errors.Is(err, application.ErrNoFetchedReview) {
		writeError(w, http.StatusConflict, "no fetched review to request a fix for")
		return
	}
	writeJSON(w, http.StatusOK, toWorkflowResponse(wf.Snapshot()))
}

// ListReviews returns reviews, optionally filtered to the session user's
// own via ?mine=1 and capped via ?limit=N.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	identity := h.identity(w)
	if identity == nil {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	var items []model.ReviewItem
	var err error
	if r.URL.Query().Get("mine") == "1" {
		items, err = h.reviews.Mine(r.Context(), identity.GitHubID, limit)
	} else {
		items, err = h.reviews.List(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("failed to list reviews", "error", err)
		writeError(w, http.StatusBadGateway, "failed to reach review backend")
		return
	}

	resp := make([]ReviewResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toReviewResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetReview returns a single review by identifier.
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	identity := h.identity(w)
	if identity == nil {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid review id")
		return
	}

	item, err := h.reviews.Get(r.Context(), id)
	if err != nil {
		var apiErr *driven.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "review not found")
			return
		}
		h.logger.Error("failed to get review", "id", id, "error", err)
		writeError(w, http.StatusBadGateway, "failed to reach review backend")
		return
	}

	writeJSON(w, http.StatusOK, toReviewResponse(*item))
}

// StatsByModel returns the backend's per-model aggregates.
func (h *Handler) StatsByModel(w http.ResponseWriter, r *http.Request) {
	if h.identity(w) == nil {
		return
	}

	modelStats, err := h.stats.ByModel(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch stats", "error", err)
		writeError(w, http.StatusBadGateway, "failed to reach review backend")
		return
	}

	resp := make([]ModelStatResponse, 0, len(modelStats))
	for _, s := range modelStats {
		resp = append(resp, ModelStatResponse{
			Model:       s.Model,
			ReviewCount: s.ReviewCount,
			AvgQuality:  s.AvgQuality,
			AvgBug:      s.AvgBug,
			AvgSecurity: s.AvgSecurity,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// StatsByUser returns the backend's per-user aggregates.
func (h *Handler) StatsByUser(w http.ResponseWriter, r *http.Request) {
	if h.identity(w) == nil {
		return
	}

	userStats, err := h.stats.ByUser(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch stats", "error", err)
		writeError(w, http.StatusBadGateway, "failed to reach review backend")
		return
	}

	resp := make([]UserStatResponse, 0, len(userStats))
	for _, s := range userStats {
		resp = append(resp, UserStatResponse{
			GitHubID:    s.GitHubID,
			Login:       s.Login,
			ReviewCount: s.ReviewCount,
			AvgQuality:  s.AvgQuality,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
