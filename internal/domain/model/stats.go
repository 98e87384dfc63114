package model

import "time"

// ModelStat is one row of the backend's per-model aggregate endpoint.
type ModelStat struct {
	Model        string
	ReviewCount  int
	AvgQuality   float64
	AvgBug       float64
	AvgSecurity  float64
	LastReviewAt time.Time
}

// UserStat is one row of the backend's per-user aggregate endpoint.
type UserStat struct {
	GitHubID    string
	Login       string
	ReviewCount int
	AvgQuality  float64
}

// ScoreAggregate summarizes quality scores for one grouping key
// (a model or a user), computed panel-side from the raw review list.
type ScoreAggregate struct {
	Key    string
	Count  int
	Mean   float64
	Median float64
	StdDev float64
}

// TrendPoint is one day's bucket in a score trend series.
type TrendPoint struct {
	Day   time.Time
	Count int
	Mean  float64
}
