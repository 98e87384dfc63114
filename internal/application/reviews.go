package application

import (
	"context"
	"fmt"

	"github.com/dkmv/dkmv/internal/domain/model"
	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// ReviewService exposes read access to the backend's review collection.
// There is deliberately no cache: every page fetch re-runs the listing, so
// re-running is always safe and nothing can go stale.
type ReviewService struct {
	backend driven.ReviewBackend
}

// NewReviewService creates a ReviewService.
func NewReviewService(backend driven.ReviewBackend) *ReviewService {
	return &ReviewService{backend: backend}
}

// List returns the accessible review set. limit <= 0 means no limit.
func (s *ReviewService) List(ctx context.Context, limit int) ([]model.ReviewItem, error) {
	items, err := s.backend.ListReviews(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	return items, nil
}

// Mine returns the reviews belonging to the given external identifier,
// derived by filtering the full listing client-side.
func (s *ReviewService) Mine(ctx context.Context, githubID string, limit int) ([]model.ReviewItem, error) {
	items, err := s.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return model.FilterByIdentity(items, githubID), nil
}

// Get returns one review by identifier.
func (s *ReviewService) Get(ctx context.Context, id int64) (*model.ReviewItem, error) {
	item, err := s.backend.GetReview(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching review %d: %w", id, err)
	}
	return item, nil
}
