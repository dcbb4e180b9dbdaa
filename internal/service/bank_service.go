package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/bank"
	"github.com/stemsi/exstem-selftest/internal/config"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/repository"
	"github.com/stemsi/exstem-selftest/internal/response"
)

// ErrBankNotFound is returned when a bank id does not exist.
var ErrBankNotFound = errors.New("question bank not found")

// BankService handles question bank business logic and the Redis payload cache.
type BankService struct {
	bankRepo     *repository.BankRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewBankService creates a new BankService.
func NewBankService(
	bankRepo *repository.BankRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *BankService {
	return &BankService{
		bankRepo:     bankRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "bank_service").Logger(),
	}
}

// GetByID retrieves a bank by its UUID.
func (s *BankService) GetByID(ctx context.Context, id uuid.UUID) (*model.QuestionBank, error) {
	b, err := s.bankRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBankNotFound
	}
	return b, err
}

// List retrieves banks with pagination.
func (s *BankService) List(ctx context.Context, page, perPage int) ([]model.QuestionBank, *response.Pagination, error) {
	page, perPage, offset := response.PageBounds(page, perPage, 10)
	banks, total, err := s.bankRepo.ListPaginated(ctx, perPage, offset)
	if err != nil {
		return nil, nil, err
	}
	if banks == nil {
		banks = []model.QuestionBank{}
	}

	return banks, response.NewPagination(page, perPage, total), nil
}

// Create inserts a new, empty bank.
func (s *BankService) Create(ctx context.Context, b *model.QuestionBank) error {
	if err := s.bankRepo.Create(ctx, b); err != nil {
		return err
	}
	s.log.Info().Str("bank_id", b.ID.String()).Str("name", b.Name).Msg("Bank created")
	return nil
}

// ReplaceQuestions stores a new question sequence for the bank and refreshes
// its cached payload. Malformed questions are kept and returned as issues.
func (s *BankService) ReplaceQuestions(ctx context.Context, bankID uuid.UUID, questions []model.Question) ([]bank.Issue, error) {
	b, err := s.GetByID(ctx, bankID)
	if err != nil {
		return nil, err
	}

	issues := bank.Report(s.log.With().Str("bank_id", bankID.String()).Logger(), questions)

	if err := s.questionRepo.ReplaceAll(ctx, bankID, questions); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}
	if err := s.bankRepo.Touch(ctx, bankID); err != nil {
		return nil, fmt.Errorf("touch bank: %w", err)
	}
	if err := s.WarmCache(ctx, b); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("bank_id", bankID.String()).
		Int("questions", len(questions)).
		Int("issues", len(issues)).
		Msg("Questions replaced")
	return issues, nil
}

// RefreshCache re-caches the payload of a bank.
func (s *BankService) RefreshCache(ctx context.Context, bankID uuid.UUID) error {
	b, err := s.GetByID(ctx, bankID)
	if err != nil {
		return err
	}
	if err := s.WarmCache(ctx, b); err != nil {
		return err
	}
	s.log.Info().Str("bank_id", bankID.String()).Msg("Cache refreshed")
	return nil
}

// WarmCache loads a bank's questions from PostgreSQL into Redis.
func (s *BankService) WarmCache(ctx context.Context, b *model.QuestionBank) error {
	questions, err := s.questionRepo.ListByBank(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if _, err := s.cache(ctx, b, questions); err != nil {
		return err
	}

	s.log.Debug().
		Str("bank_id", b.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

func (s *BankService) cache(ctx context.Context, b *model.QuestionBank, questions []model.Question) (*model.BankPayload, error) {
	payload := &model.BankPayload{
		BankID:    b.ID,
		Name:      b.Name,
		Questions: questions,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.BankPayloadKey(b.ID.String()), raw, 0).Err(); err != nil {
		return nil, fmt.Errorf("cache to redis: %w", err)
	}
	return payload, nil
}

// PrewarmAllCaches loads every bank into Redis on application startup.
func (s *BankService) PrewarmAllCaches(ctx context.Context) error {
	ids, err := s.bankRepo.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list banks: %w", err)
	}
	if len(ids) == 0 {
		s.log.Info().Msg("No banks to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(ids)).Msg("Prewarming banks...")

	warmed := 0
	for _, id := range ids {
		if err := s.RefreshCache(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("bank_id", id.String()).Msg("Failed to warm bank, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().Int("warmed", warmed).Int("total", len(ids)).Msg("Prewarming complete")
	return nil
}

// Payload returns the cached bank payload, reading through to PostgreSQL and
// healing the cache on a miss.
func (s *BankService) Payload(ctx context.Context, bankID uuid.UUID) (*model.BankPayload, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.BankPayloadKey(bankID.String())).Bytes()
	switch {
	case err == nil:
		var payload model.BankPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &payload, nil
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Str("bank_id", bankID.String()).Msg("Redis read failed, falling back to PostgreSQL")
	}

	b, err := s.GetByID(ctx, bankID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.ListByBank(ctx, bankID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	payload, err := s.cache(ctx, b, questions)
	if err != nil {
		s.log.Warn().Err(err).Str("bank_id", bankID.String()).Msg("Failed to heal bank cache")
		return &model.BankPayload{BankID: b.ID, Name: b.Name, Questions: questions}, nil
	}
	return payload, nil
}

// Questions returns the question sequence of a bank. It satisfies BankLoader.
func (s *BankService) Questions(ctx context.Context, bankID uuid.UUID) ([]model.Question, error) {
	payload, err := s.Payload(ctx, bankID)
	if err != nil {
		return nil, err
	}
	return payload.Questions, nil
}
