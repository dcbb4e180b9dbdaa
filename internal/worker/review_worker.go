package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/config"
	"github.com/stemsi/exstem-selftest/internal/model"
)

const reviewRetryDelay = 5 * time.Second

// ReviewWorker consumes persist_reviews_queue and inserts essay reviews. A
// task that was already stored is ignored, so replays are harmless.
type ReviewWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewReviewWorker creates a new ReviewWorker.
func NewReviewWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ReviewWorker {
	return &ReviewWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "review_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ReviewWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ReviewWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistReviewsQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	task, ok := w.decode(result[1])
	if !ok {
		return
	}

	if err := w.persistReview(ctx, task); err != nil {
		if isPermanent(err) {
			w.log.Error().Err(err).Str("attempt_id", task.AttemptID.String()).Msg("Review rejected by database, dropping")
			return
		}
		w.log.Error().Err(err).
			Str("attempt_id", task.AttemptID.String()).
			Str("question_id", task.QuestionID).
			Msg("Persist error, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.PersistReviewsQueue, result[1])
		select {
		case <-time.After(reviewRetryDelay):
		case <-ctx.Done():
		}
	}
}

func (w *ReviewWorker) decode(raw string) (*model.ReviewTask, bool) {
	var task model.ReviewTask
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return nil, false
	}
	if task.QuestionID == "" {
		w.log.Warn().Str("attempt_id", task.AttemptID.String()).Msg("Review task without question id, dropping")
		return nil, false
	}
	return &task, true
}

func (w *ReviewWorker) persistReview(ctx context.Context, t *model.ReviewTask) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO essay_reviews (attempt_id, question_id, answer, reference, max_score)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (attempt_id, question_id) DO NOTHING`,
		t.AttemptID, t.QuestionID, t.Answer, t.Reference, t.MaxScore,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *ReviewWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistReviewsQueue).Result()
		if err != nil {
			break
		}

		task, ok := w.decode(result)
		if !ok {
			continue
		}

		if err := w.persistReview(ctx, task); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			if !isPermanent(err) {
				w.rdb.RPush(ctx, config.WorkerKey.PersistReviewsQueue, result)
				break
			}
			continue
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
