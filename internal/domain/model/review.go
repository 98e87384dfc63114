package model

import "time"

// CategoryScores holds the per-category quality scores of a review,
// each in the range [0,100].
type CategoryScores struct {
	Bug             float64
	Maintainability float64
	Style           float64
	Security        float64
}

// ReviewItem is one server-generated code quality assessment. Items are
// immutable once fetched; the panel only creates new reviews and re-fetches.
type ReviewItem struct {
	ReviewID     int64
	GitHubID     string
	Model        string
	Trigger      string
	Language     string
	QualityScore float64
	Summary      string
	Scores       CategoryScores
	Comments     map[string]string
	Audit        time.Time
	Code         string
}

// ReviewRequest is the write-once tuple submitted to create a review.
// The backend assigns the review identifier; Audit is the submission time.
type ReviewRequest struct {
	GitHubID string
	Version  string
	Actor    string
	Language string
	Trigger  string
	Model    string
	Code     string
	Audit    time.Time
}

// FilterByIdentity returns the subset of items whose GitHubID equals the
// given identifier, preserving the original order. It is a pure derived
// view; no caching is layered on top.
func FilterByIdentity(items []ReviewItem, githubID string) []ReviewItem {
	filtered := make([]ReviewItem, 0, len(items))
	for _, item := range items {
		if item.GitHubID == githubID {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
