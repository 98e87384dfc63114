package reviewapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dkmv/dkmv/internal/domain/model"
	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// wireScores mirrors the backend's scores_by_category object.
type wireScores struct {
	Bug             float64 `json:"bug"`
	Maintainability float64 `json:"maintainability"`
	Style           float64 `json:"style"`
	Security        float64 `json:"security"`
}

// wireReview mirrors one review item as served by the backend.
type wireReview struct {
	ReviewID     int64             `json:"review_id"`
	GitHubID     string            `json:"github_id"`
	Model        string            `json:"model"`
	Trigger      string            `json:"trigger"`
	Language     string            `json:"language"`
	QualityScore float64           `json:"quality_score"`
	Summary      string            `json:"summary"`
	Scores       wireScores        `json:"scores_by_category"`
	Comments     map[string]string `json:"comments"`
	Audit        string            `json:"audit"`
	Code         string            `json:"code"`
}

func (w wireReview) toModel() model.ReviewItem {
	return model.ReviewItem{
		ReviewID:     w.ReviewID,
		GitHubID:     w.GitHubID,
		Model:        w.Model,
		Trigger:      w.Trigger,
		Language:     w.Language,
		QualityScore: w.QualityScore,
		Summary:      w.Summary,
		Scores: model.CategoryScores{
			Bug:             w.Scores.Bug,
			Maintainability: w.Scores.Maintainability,
			Style:           w.Scores.Style,
			Security:        w.Scores.Security,
		},
		Comments: w.Comments,
		Audit:    parseAudit(w.Audit),
		Code:     w.Code,
	}
}

// parseAudit parses the backend's ISO timestamp. A malformed timestamp
// yields the zero time rather than failing the whole listing.
func parseAudit(raw string) time.Time {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	return time.Time{}
}

// ListReviews fetches the full accessible review set. limit <= 0 omits the
// limit parameter entirely.
func (c *Client) ListReviews(ctx context.Context, limit int) ([]model.ReviewItem, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var envelope struct {
		Meta json.RawMessage `json:"meta"`
		Body []wireReview    `json:"body"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/reviews", query, nil, &envelope); err != nil {
		return nil, err
	}

	items := make([]model.ReviewItem, 0, len(envelope.Body))
	for _, w := range envelope.Body {
		items = append(items, w.toModel())
	}
	return items, nil
}

// GetReview fetches one review by identifier. The response must carry both
// a meta section and a body section; absence of either is a shape failure
// even though the HTTP call succeeded.
func (c *Client) GetReview(ctx context.Context, id int64) (*model.ReviewItem, error) {
	var envelope struct {
		Meta json.RawMessage `json:"meta"`
		Body json.RawMessage `json:"body"`
	}
	path := fmt.Sprintf("/v1/reviews/%d", id)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &envelope); err != nil {
		return nil, err
	}

	if !sectionPresent(envelope.Meta) || !sectionPresent(envelope.Body) {
		return nil, fmt.Errorf("review %d: meta or body section absent: %w", id, driven.ErrMalformedResponse)
	}

	var meta wireReview
	if err := json.Unmarshal(envelope.Meta, &meta); err != nil {
		return nil, fmt.Errorf("review %d: decoding meta: %v: %w", id, err, driven.ErrMalformedResponse)
	}

	var body struct {
		QualityScore float64           `json:"quality_score"`
		Summary      string            `json:"summary"`
		Scores       wireScores        `json:"scores_by_category"`
		Comments     map[string]string `json:"comments"`
	}
	if err := json.Unmarshal(envelope.Body, &body); err != nil {
		return nil, fmt.Errorf("review %d: decoding body: %v: %w", id, err, driven.ErrMalformedResponse)
	}

	item := meta.toModel()
	if item.ReviewID == 0 {
		item.ReviewID = id
	}
	item.QualityScore = body.QualityScore
	item.Summary = body.Summary
	item.Scores = model.CategoryScores{
		Bug:             body.Scores.Bug,
		Maintainability: body.Scores.Maintainability,
		Style:           body.Scores.Style,
		Security:        body.Scores.Security,
	}
	item.Comments = body.Comments

	return &item, nil
}

// sectionPresent reports whether a raw JSON section exists and is not null.
func sectionPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// CreateReview submits a review request and returns the server-assigned
// identifier. review_id, code_fingerprint, and result are serialized as
// explicit nulls; the backend fills them in.
func (c *Client) CreateReview(ctx context.Context, req model.ReviewRequest) (int64, error) {
	payload := map[string]any{
		"meta": map[string]any{
			"github_id":        req.GitHubID,
			"review_id":        nil,
			"version":          req.Version,
			"actor":            req.Actor,
			"language":         req.Language,
			"trigger":          req.Trigger,
			"code_fingerprint": nil,
			"model":            req.Model,
			"result":           nil,
			"audit":            req.Audit.UTC().Format(time.RFC3339),
		},
		"body": map[string]any{
			"snippet": map[string]any{
				"code": req.Code,
			},
		},
	}

	var resp struct {
		ReviewID *int64 `json:"review_id"`
		Meta     struct {
			ReviewID *int64 `json:"review_id"`
		} `json:"meta"`
		Body struct {
			ReviewID *int64 `json:"review_id"`
		} `json:"body"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/reviews/request", nil, payload, &resp); err != nil {
		return 0, err
	}

	// Identifier extraction order: body, meta, top level.
	for _, id := range []*int64{resp.Body.ReviewID, resp.Meta.ReviewID, resp.ReviewID} {
		if id != nil {
			return *id, nil
		}
	}

	return 0, fmt.Errorf("create review: identifier missing from response: %w", driven.ErrMalformedResponse)
}

// RequestFix asks for a fix suggestion for an existing review. The
// response is opaque text for display and is returned verbatim.
func (c *Client) RequestFix(ctx context.Context, reviewID int64, code string) (string, error) {
	payload := map[string]any{
		"review_id": reviewID,
		"code":      code,
	}

	raw, err := c.doRaw(ctx, http.MethodPost, "/v1/fix", nil, payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// wireModelStat mirrors one row of /v1/reviews/stats/by-model.
type wireModelStat struct {
	Model        string  `json:"model"`
	ReviewCount  int     `json:"review_count"`
	AvgQuality   float64 `json:"avg_quality"`
	AvgBug       float64 `json:"avg_bug"`
	AvgSecurity  float64 `json:"avg_security"`
	LastReviewAt string  `json:"last_review_at"`
}

// StatsByModel returns the backend's per-model aggregates.
func (c *Client) StatsByModel(ctx context.Context) ([]model.ModelStat, error) {
	var envelope struct {
		Data []wireModelStat `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/reviews/stats/by-model", nil, nil, &envelope); err != nil {
		return nil, err
	}

	stats := make([]model.ModelStat, 0, len(envelope.Data))
	for _, w := range envelope.Data {
		stats = append(stats, model.ModelStat{
			Model:        w.Model,
			ReviewCount:  w.ReviewCount,
			AvgQuality:   w.AvgQuality,
			AvgBug:       w.AvgBug,
			AvgSecurity:  w.AvgSecurity,
			LastReviewAt: parseAudit(w.LastReviewAt),
		})
	}
	return stats, nil
}

// StatsByUser returns the backend's per-user aggregates.
func (c *Client) StatsByUser(ctx context.Context) ([]model.UserStat, error) {
	var envelope struct {
		Data []struct {
			GitHubID    string  `json:"github_id"`
			Login       string  `json:"login"`
			ReviewCount int     `json:"review_count"`
			AvgQuality  float64 `json:"avg_quality"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/reviews/stats/by-user", nil, nil, &envelope); err != nil {
		return nil, err
	}

	stats := make([]model.UserStat, 0, len(envelope.Data))
	for _, w := range envelope.Data {
		stats = append(stats, model.UserStat{
			GitHubID:    w.GitHubID,
			Login:       w.Login,
			ReviewCount: w.ReviewCount,
			AvgQuality:  w.AvgQuality,
		})
	}
	return stats, nil
}
