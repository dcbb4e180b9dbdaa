package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-selftest/internal/model"
)

// ErrReviewAlreadyGraded is returned by Grade when another reviewer scored
// the essay first.
var ErrReviewAlreadyGraded = errors.New("review already graded")

// ReviewRepository handles essay review data access.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository creates a new ReviewRepository.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

const reviewColumns = `id, attempt_id, question_id, answer, reference, max_score,
	score, reviewer_id, reviewed_at, created_at`

func scanReview(row interface{ Scan(...any) error }, rv *model.EssayReview) error {
	return row.Scan(&rv.ID, &rv.AttemptID, &rv.QuestionID, &rv.Answer, &rv.Reference, &rv.MaxScore,
		&rv.Score, &rv.ReviewerID, &rv.ReviewedAt, &rv.CreatedAt)
}

// GetByID retrieves a review by id.
func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*model.EssayReview, error) {
	rv := &model.EssayReview{}
	if err := scanReview(r.pool.QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM essay_reviews WHERE id = $1`, id), rv); err != nil {
		return nil, err
	}
	return rv, nil
}

// ListPending retrieves ungraded reviews, oldest first.
func (r *ReviewRepository) ListPending(ctx context.Context, limit, offset int) ([]model.EssayReview, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM essay_reviews WHERE score IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+reviewColumns+`
		 FROM essay_reviews
		 WHERE score IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reviews := []model.EssayReview{}
	for rows.Next() {
		var rv model.EssayReview
		if err := scanReview(rows, &rv); err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, total, rows.Err()
}

// Grade stores the manual score and recomputes the attempt's reviewed score
// as its automatic score plus every graded essay, in one transaction. Only an
// ungraded review is updated.
func (r *ReviewRepository) Grade(ctx context.Context, rv *model.EssayReview, score float64, reviewerID int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	tag, err := tx.Exec(ctx,
		`UPDATE essay_reviews
		 SET score = $1, reviewer_id = $2, reviewed_at = $3
		 WHERE id = $4 AND score IS NULL`,
		score, reviewerID, now, rv.ID)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReviewAlreadyGraded
	}

	if _, err := tx.Exec(ctx,
		`UPDATE attempts
		 SET reviewed_score = COALESCE(score, 0) + (
		     SELECT COALESCE(SUM(er.score), 0)
		     FROM essay_reviews er
		     WHERE er.attempt_id = $1 AND er.score IS NOT NULL
		 )
		 WHERE id = $1`, rv.AttemptID); err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	rv.Score = &score
	rv.ReviewerID = &reviewerID
	rv.ReviewedAt = &now
	return nil
}
