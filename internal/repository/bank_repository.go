package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-selftest/internal/model"
)

// BankRepository handles question bank data access.
type BankRepository struct {
	pool *pgxpool.Pool
}

// NewBankRepository creates a new BankRepository.
func NewBankRepository(pool *pgxpool.Pool) *BankRepository {
	return &BankRepository{pool: pool}
}

const bankColumns = `b.id, b.author_id, b.name, b.description,
	(SELECT COUNT(*) FROM questions q WHERE q.bank_id = b.id) AS question_count,
	b.created_at, b.updated_at`

// GetByID retrieves a bank by its UUID.
func (r *BankRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.QuestionBank, error) {
	b := &model.QuestionBank{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+bankColumns+` FROM question_banks b WHERE b.id = $1`, id,
	).Scan(&b.ID, &b.AuthorID, &b.Name, &b.Description, &b.QuestionCount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListPaginated retrieves banks newest first.
func (r *BankRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.QuestionBank, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM question_banks`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+bankColumns+` FROM question_banks b
		 ORDER BY b.created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var banks []model.QuestionBank
	for rows.Next() {
		var b model.QuestionBank
		if err := rows.Scan(&b.ID, &b.AuthorID, &b.Name, &b.Description, &b.QuestionCount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, err
		}
		banks = append(banks, b)
	}
	return banks, total, rows.Err()
}

// ListIDs returns every bank id. Used for cache prewarming on startup.
func (r *BankRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM question_banks ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Create inserts a new bank.
func (r *BankRepository) Create(ctx context.Context, b *model.QuestionBank) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO question_banks (author_id, name, description)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		b.AuthorID, b.Name, b.Description,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// Touch bumps updated_at after the bank's questions change.
func (r *BankRepository) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE question_banks SET updated_at = NOW() WHERE id = $1`, id)
	return err
}
