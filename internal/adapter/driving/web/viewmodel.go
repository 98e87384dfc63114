package web

import (
	"strconv"

	"github.com/dkmv/dkmv/internal/application"
	"github.com/dkmv/dkmv/internal/domain/model"
)

// BaseView carries the fields every page template needs.
type BaseView struct {
	Title     string
	Active    string
	User      *model.Identity
	CSRFToken string
	Flash     string
	Error     string
}

// DashboardView is the data for the dashboard page.
type DashboardView struct {
	BaseView
	MyReviews    []model.ReviewItem
	TotalReviews int
	TotalUsers   int
	Trend        []model.TrendPoint
	TopModels    []model.ScoreAggregate
	LoadError    string
}

// AnalysesView is the data for the review history listing.
type AnalysesView struct {
	BaseView
	Reviews   []model.ReviewItem
	LoadError string
}

// AnalysisView is the data for a single review detail page.
type AnalysisView struct {
	BaseView
	Review    *model.ReviewItem
	LoadError string
}

// PlaygroundView is the data for the playground page.
type PlaygroundView struct {
	BaseView
	Models   []string
	Selected string
	Code     string
	Run      application.RunSnapshot
}

// CompareView is the data for the per-model comparison page.
type CompareView struct {
	BaseView
	Aggregates []model.ScoreAggregate
	Backend    []model.ModelStat
	LoadError  string
}

// LeaderboardRow joins a user identity with its score summary.
type LeaderboardRow struct {
	Rank      int
	Login     string
	Name      string
	AvatarURL string
	Count     int
	Mean      float64
	Median    float64
}

// LeaderboardView is the data for the leaderboard page.
type LeaderboardView struct {
	BaseView
	Rows      []LeaderboardRow
	LoadError string
}

// SettingsView is the data for the settings page.
type SettingsView struct {
	BaseView
	Settings    model.UserSettings
	Models      []string
	MintedToken string
}

// LoginView is the data for the login page.
type LoginView struct {
	BaseView
	LoginURL string
	Users    []model.Identity
}

// formatScore renders a score with one decimal, trimming trailing zeros.
func formatScore(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	if len(s) > 2 && s[len(s)-2:] == ".0" {
		s = s[:len(s)-2]
	}
	return s
}
