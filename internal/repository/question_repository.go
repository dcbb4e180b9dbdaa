package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-selftest/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByBank retrieves all questions of a bank, ordered by order_num.
func (r *QuestionRepository) ListByBank(ctx context.Context, bankID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_type, prompt, options, correct, max_score, image,
		        time_allowance, tags, min_words, max_words, order_num
		 FROM questions WHERE bank_id = $1
		 ORDER BY order_num`, bankID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Type, &q.Prompt, &q.Options, &q.Correct, &q.MaxScore, &q.Image,
			&q.TimeAllowance, &q.Tags, &q.MinWords, &q.MaxWords, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ReplaceAll swaps the bank's questions for the given sequence in one
// transaction. Order numbers follow slice order.
func (r *QuestionRepository) ReplaceAll(ctx context.Context, bankID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE bank_id = $1`, bankID); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}

	batch := &pgx.Batch{}
	for i, q := range questions {
		tags := q.Tags
		if tags == nil {
			tags = []string{}
		}
		batch.Queue(
			`INSERT INTO questions (bank_id, id, order_num, question_type, prompt, options, correct,
			                        max_score, image, time_allowance, tags, min_words, max_words)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			bankID, q.ID, i+1, string(q.Type), q.Prompt, q.Options, q.Correct,
			q.MaxScore, q.Image, q.TimeAllowance, tags, q.MinWords, q.MaxWords,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}

	return tx.Commit(ctx)
}
