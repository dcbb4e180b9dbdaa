package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReviewStore struct {
	mock.Mock
}

func (m *mockReviewStore) GetByID(ctx context.Context, id int64) (*model.EssayReview, error) {
	args := m.Called(ctx, id)
	rv, _ := args.Get(0).(*model.EssayReview)
	return rv, args.Error(1)
}

func (m *mockReviewStore) ListPending(ctx context.Context, limit, offset int) ([]model.EssayReview, int, error) {
	args := m.Called(ctx, limit, offset)
	reviews, _ := args.Get(0).([]model.EssayReview)
	return reviews, args.Int(1), args.Error(2)
}

func (m *mockReviewStore) Grade(ctx context.Context, rv *model.EssayReview, score float64, reviewerID int) error {
	return m.Called(ctx, rv, score, reviewerID).Error(0)
}

func TestReviewService_Grade(t *testing.T) {
	ctx := context.Background()
	pending := func() *model.EssayReview {
		return &model.EssayReview{ID: 7, AttemptID: uuid.New(), QuestionID: "q3", MaxScore: 10}
	}

	t.Run("grades a pending review", func(t *testing.T) {
		store := new(mockReviewStore)
		rv := pending()
		store.On("GetByID", ctx, int64(7)).Return(rv, nil)
		store.On("Grade", ctx, rv, 6.0, 1).Return(nil)

		got, err := NewReviewService(store, zerolog.Nop()).Grade(ctx, 7, 6, 1)
		require.NoError(t, err)
		assert.Same(t, rv, got)
		store.AssertExpectations(t)
	})

	t.Run("another reviewer graded it first", func(t *testing.T) {
		store := new(mockReviewStore)
		rv := pending()
		store.On("GetByID", ctx, int64(7)).Return(rv, nil)
		store.On("Grade", ctx, rv, 7.0, 2).Return(repository.ErrReviewAlreadyGraded)

		got, err := NewReviewService(store, zerolog.Nop()).Grade(ctx, 7, 7, 2)
		assert.ErrorIs(t, err, ErrReviewAlreadyGiven)
		assert.Nil(t, got)
		store.AssertExpectations(t)
	})

	t.Run("already graded when read", func(t *testing.T) {
		store := new(mockReviewStore)
		rv := pending()
		score := 3.0
		rv.Score = &score
		store.On("GetByID", ctx, int64(7)).Return(rv, nil)

		_, err := NewReviewService(store, zerolog.Nop()).Grade(ctx, 7, 5, 1)
		assert.ErrorIs(t, err, ErrReviewAlreadyGiven)
		store.AssertNotCalled(t, "Grade", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown review", func(t *testing.T) {
		store := new(mockReviewStore)
		store.On("GetByID", ctx, int64(9)).Return(nil, pgx.ErrNoRows)

		_, err := NewReviewService(store, zerolog.Nop()).Grade(ctx, 9, 5, 1)
		assert.ErrorIs(t, err, ErrReviewNotFound)
	})
}

func TestCheckReviewScore(t *testing.T) {
	graded := 4.0
	tests := []struct {
		name  string
		rv    model.EssayReview
		score float64
		want  error
	}{
		{name: "zero", rv: model.EssayReview{MaxScore: 10}, score: 0},
		{name: "full marks", rv: model.EssayReview{MaxScore: 10}, score: 10},
		{name: "negative", rv: model.EssayReview{MaxScore: 10}, score: -1, want: ErrScoreOutOfRange},
		{name: "above max", rv: model.EssayReview{MaxScore: 10}, score: 10.5, want: ErrScoreOutOfRange},
		{name: "already graded", rv: model.EssayReview{MaxScore: 10, Score: &graded}, score: 5, want: ErrReviewAlreadyGiven},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckReviewScore(&tc.rv, tc.score)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
