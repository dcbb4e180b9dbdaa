package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/repository"
)

// ErrAttemptNotFound is returned when an attempt does not exist or belongs to
// another learner.
var ErrAttemptNotFound = errors.New("attempt not found")

const attemptHistoryLimit = 100

// AttemptService exposes the persisted attempt history.
type AttemptService struct {
	attemptRepo *repository.AttemptRepository
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(attemptRepo *repository.AttemptRepository) *AttemptService {
	return &AttemptService{attemptRepo: attemptRepo}
}

// ListByLearner returns a learner's most recent attempts without their records.
func (s *AttemptService) ListByLearner(ctx context.Context, learnerID int) ([]model.Attempt, error) {
	return s.attemptRepo.ListByLearner(ctx, learnerID, attemptHistoryLimit)
}

// GetForLearner returns one attempt with its grading record.
func (s *AttemptService) GetForLearner(ctx context.Context, id uuid.UUID, learnerID int) (*model.Attempt, error) {
	a, err := s.attemptRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.LearnerID != learnerID {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}
