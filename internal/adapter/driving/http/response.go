package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dkmv/dkmv/internal/application"
	"github.com/dkmv/dkmv/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// IdentityResponse is the JSON representation of the session identity.
type IdentityResponse struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	GitHubID  string `json:"github_id"`
}

// ScoresResponse is the JSON representation of per-category scores.
type ScoresResponse struct {
	Bug             float64 `json:"bug"`
	Maintainability float64 `json:"maintainability"`
	Style           float64 `json:"style"`
	Security        float64 `json:"security"`
}

// ReviewResponse is the JSON representation of one review item.
type ReviewResponse struct {
	ReviewID     int64             `json:"review_id"`
	GitHubID     string            `json:"github_id"`
	Model        string            `json:"model"`
	Trigger      string            `json:"trigger,omitempty"`
	Language     string            `json:"language,omitempty"`
	QualityScore float64           `json:"quality_score"`
	Summary      string            `json:"summary"`
	Scores       ScoresResponse    `json:"scores_by_category"`
	Comments     map[string]string `json:"comments"`
	Audit        string            `json:"audit"`
}

// WorkflowResponse is the JSON representation of a workflow run snapshot.
type WorkflowResponse struct {
	State    string          `json:"state"`
	RunID    string          `json:"run_id,omitempty"`
	ReviewID int64           `json:"review_id,omitempty"`
	Review   *ReviewResponse `json:"review,omitempty"`
	ErrKind  string          `json:"error_kind,omitempty"`
	Error    string          `json:"error,omitempty"`
	FixBusy  bool            `json:"fix_busy"`
	FixText  string          `json:"fix_text,omitempty"`
	FixError string          `json:"fix_error,omitempty"`
}

// SubmitRequest is the JSON body for the workflow submit endpoint.
type SubmitRequest struct {
	Code     string `json:"code"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

// ModelStatResponse is one row of the per-model stats endpoint.
type ModelStatResponse struct {
	Model       string  `json:"model"`
	ReviewCount int     `json:"review_count"`
	AvgQuality  float64 `json:"avg_quality"`
	AvgBug      float64 `json:"avg_bug"`
	AvgSecurity float64 `json:"avg_security"`
}

// UserStatResponse is one row of the per-user stats endpoint.
type UserStatResponse struct {
	GitHubID    string  `json:"github_id"`
	Login       string  `json:"login"`
	ReviewCount int     `json:"review_count"`
	AvgQuality  float64 `json:"avg_quality"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toIdentityResponse converts a domain Identity to its JSON representation.
func toIdentityResponse(identity model.Identity) IdentityResponse {
	return IdentityResponse{
		ID:        identity.ID,
		Login:     identity.Login,
		Name:      identity.Name,
		AvatarURL: identity.AvatarURL,
		GitHubID:  identity.GitHubID,
	}
}

// toReviewResponse converts a domain ReviewItem to its JSON representation.
func toReviewResponse(item model.ReviewItem) ReviewResponse {
	comments := item.Comments
	if comments == nil {
		comments = map[string]string{}
	}

	audit := ""
	if !item.Audit.IsZero() {
		audit = item.Audit.UTC().Format(time.RFC3339)
	}

	return ReviewResponse{
		ReviewID:     item.ReviewID,
		GitHubID:     item.GitHubID,
		Model:        item.Model,
		Trigger:      item.Trigger,
		Language:     item.Language,
		QualityScore: item.QualityScore,
		Summary:      item.Summary,
		Scores: ScoresResponse{
			Bug:             item.Scores.Bug,
			Maintainability: item.Scores.Maintainability,
			Style:           item.Scores.Style,
			Security:        item.Scores.Security,
		},
		Comments: comments,
		Audit:    audit,
	}
}

// toWorkflowResponse converts a run snapshot to its JSON representation.
func toWorkflowResponse(snapshot application.RunSnapshot) WorkflowResponse {
	resp := WorkflowResponse{
		State:    string(snapshot.State),
		RunID:    snapshot.RunID,
		ReviewID: snapshot.ReviewID,
		ErrKind:  snapshot.ErrKind,
		Error:    snapshot.Err,
		FixBusy:  snapshot.FixBusy,
		FixText:  snapshot.FixText,
		FixError: snapshot.FixErr,
	}
	if snapshot.Review != nil {
		review := toReviewResponse(*snapshot.Review)
		resp.Review = &review
	}
	return resp
}
