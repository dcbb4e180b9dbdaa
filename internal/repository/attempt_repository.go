package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-selftest/internal/model"
)

// AttemptRepository handles attempt data access. Attempts are written by the
// scoring worker; this repository only reads them.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, bank_id, learner_id, started_at, finished_at, status,
	score, max_score, percentage, reviewed_score, record`

func scanAttempt(row interface{ Scan(...any) error }, a *model.Attempt) error {
	return row.Scan(&a.ID, &a.BankID, &a.LearnerID, &a.StartedAt, &a.FinishedAt, &a.Status,
		&a.Score, &a.MaxScore, &a.Percentage, &a.ReviewedScore, &a.Record)
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	if err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id), a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListByLearner retrieves a learner's attempts, newest first. The grading
// record is left out of the listing.
func (r *AttemptRepository) ListByLearner(ctx context.Context, learnerID, limit int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, bank_id, learner_id, started_at, finished_at, status,
		        score, max_score, percentage, reviewed_score, NULL::jsonb
		 FROM attempts
		 WHERE learner_id = $1
		 ORDER BY started_at DESC
		 LIMIT $2`, learnerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []model.Attempt{}
	for rows.Next() {
		var a model.Attempt
		if err := scanAttempt(rows, &a); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ListByBank retrieves every attempt at a bank with its grading record,
// oldest first. Used for the results export.
func (r *AttemptRepository) ListByBank(ctx context.Context, bankID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempts
		 WHERE bank_id = $1
		 ORDER BY started_at ASC`, bankID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := scanAttempt(rows, &a); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
