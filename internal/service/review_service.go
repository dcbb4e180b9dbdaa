package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/repository"
	"github.com/stemsi/exstem-selftest/internal/response"
)

// Review errors.
var (
	ErrReviewNotFound     = errors.New("review not found")
	ErrScoreOutOfRange    = errors.New("score exceeds the question's maximum")
	ErrReviewAlreadyGiven = errors.New("review already graded")
)

// ReviewService handles manual grading of essay answers. Grading never
// changes the engine's grading record; it fills the attempt's reviewed score.
type ReviewService struct {
	reviewRepo ReviewStore
	log        zerolog.Logger
}

// ReviewStore is the essay review storage, implemented by
// repository.ReviewRepository.
type ReviewStore interface {
	GetByID(ctx context.Context, id int64) (*model.EssayReview, error)
	ListPending(ctx context.Context, limit, offset int) ([]model.EssayReview, int, error)
	Grade(ctx context.Context, rv *model.EssayReview, score float64, reviewerID int) error
}

// NewReviewService creates a new ReviewService.
func NewReviewService(reviewRepo ReviewStore, log zerolog.Logger) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		log:        log.With().Str("component", "review_service").Logger(),
	}
}

// ListPending returns ungraded essays, oldest first.
func (s *ReviewService) ListPending(ctx context.Context, page, perPage int) ([]model.EssayReview, *response.Pagination, error) {
	page, perPage, offset := response.PageBounds(page, perPage, 20)
	reviews, total, err := s.reviewRepo.ListPending(ctx, perPage, offset)
	if err != nil {
		return nil, nil, err
	}
	return reviews, response.NewPagination(page, perPage, total), nil
}

// Grade awards a score between 0 and the question's maximum.
func (s *ReviewService) Grade(ctx context.Context, reviewID int64, score float64, reviewerID int) (*model.EssayReview, error) {
	rv, err := s.reviewRepo.GetByID(ctx, reviewID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if err := CheckReviewScore(rv, score); err != nil {
		return nil, err
	}

	err = s.reviewRepo.Grade(ctx, rv, score, reviewerID)
	if errors.Is(err, repository.ErrReviewAlreadyGraded) {
		return nil, ErrReviewAlreadyGiven
	}
	if err != nil {
		return nil, fmt.Errorf("grade review: %w", err)
	}

	s.log.Info().
		Int64("review_id", rv.ID).
		Str("attempt_id", rv.AttemptID.String()).
		Float64("score", score).
		Int("reviewer_id", reviewerID).
		Msg("Essay graded")
	return rv, nil
}

// CheckReviewScore validates a manual score against the review.
func CheckReviewScore(rv *model.EssayReview, score float64) error {
	if rv.Score != nil {
		return ErrReviewAlreadyGiven
	}
	if score < 0 || score > rv.MaxScore {
		return ErrScoreOutOfRange
	}
	return nil
}
