package application

import (
	"context"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/dkmv/dkmv/internal/domain/model"
	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// StatsService combines backend-side aggregates with panel-side score
// summaries for the leaderboard, comparison, and trend views.
type StatsService struct {
	backend driven.ReviewBackend
}

// NewStatsService creates a StatsService.
func NewStatsService(backend driven.ReviewBackend) *StatsService {
	return &StatsService{backend: backend}
}

// Overview is the combined dashboard data set.
type Overview struct {
	Reviews    []model.ReviewItem
	Users      []model.Identity
	ModelStats []model.ModelStat
	UserStats  []model.UserStat
}

// Overview fetches reviews, users, and both aggregate endpoints
// concurrently. The four calls are independent and idempotent, so no
// ordering is imposed between them.
func (s *StatsService) Overview(ctx context.Context) (*Overview, error) {
	var overview Overview

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.backend.ListReviews(gctx, 0)
		overview.Reviews = items
		return err
	})
	g.Go(func() error {
		users, err := s.backend.ListUsers(gctx)
		overview.Users = users
		return err
	})
	g.Go(func() error {
		modelStats, err := s.backend.StatsByModel(gctx)
		overview.ModelStats = modelStats
		return err
	})
	g.Go(func() error {
		userStats, err := s.backend.StatsByUser(gctx)
		overview.UserStats = userStats
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &overview, nil
}

// ByModel returns the backend's per-model aggregates.
func (s *StatsService) ByModel(ctx context.Context) ([]model.ModelStat, error) {
	return s.backend.StatsByModel(ctx)
}

// ByUser returns the backend's per-user aggregates.
func (s *StatsService) ByUser(ctx context.Context) ([]model.UserStat, error) {
	return s.backend.StatsByUser(ctx)
}

// AggregateByModel summarizes quality scores grouped by model, sorted by
// mean descending (ties broken by key) for comparison tables.
func AggregateByModel(items []model.ReviewItem) []model.ScoreAggregate {
	return aggregate(items, func(item model.ReviewItem) string { return item.Model })
}

// AggregateByUser summarizes quality scores grouped by external user
// identifier, sorted by mean descending for the leaderboard.
func AggregateByUser(items []model.ReviewItem) []model.ScoreAggregate {
	return aggregate(items, func(item model.ReviewItem) string { return item.GitHubID })
}

func aggregate(items []model.ReviewItem, keyOf func(model.ReviewItem) string) []model.ScoreAggregate {
	scores := make(map[string][]float64)
	for _, item := range items {
		key := keyOf(item)
		if key == "" {
			continue
		}
		scores[key] = append(scores[key], item.QualityScore)
	}

	aggregates := make([]model.ScoreAggregate, 0, len(scores))
	for key, values := range scores {
		mean, _ := stats.Mean(values)
		median, _ := stats.Median(values)
		stdDev, _ := stats.StandardDeviation(values)

		aggregates = append(aggregates, model.ScoreAggregate{
			Key:    key,
			Count:  len(values),
			Mean:   mean,
			Median: median,
			StdDev: stdDev,
		})
	}

	sort.Slice(aggregates, func(i, j int) bool {
		if aggregates[i].Mean != aggregates[j].Mean {
			return aggregates[i].Mean > aggregates[j].Mean
		}
		return aggregates[i].Key < aggregates[j].Key
	})

	return aggregates
}

// Trend buckets quality scores per UTC day over the trailing window,
// including empty days so charts stay continuous. Items without a valid
// audit timestamp are skipped.
func Trend(items []model.ReviewItem, days int, now time.Time) []model.TrendPoint {
	if days <= 0 {
		return nil
	}

	today := now.UTC().Truncate(24 * time.Hour)
	first := today.AddDate(0, 0, -(days - 1))

	byDay := make(map[time.Time][]float64)
	for _, item := range items {
		if item.Audit.IsZero() {
			continue
		}
		day := item.Audit.UTC().Truncate(24 * time.Hour)
		if day.Before(first) || day.After(today) {
			continue
		}
		byDay[day] = append(byDay[day], item.QualityScore)
	}

	points := make([]model.TrendPoint, 0, days)
	for day := first; !day.After(today); day = day.AddDate(0, 0, 1) {
		values := byDay[day]
		point := model.TrendPoint{Day: day, Count: len(values)}
		if len(values) > 0 {
			point.Mean, _ = stats.Mean(values)
		}
		points = append(points, point)
	}

	return points
}
