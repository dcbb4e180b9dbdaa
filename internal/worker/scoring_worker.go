package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/config"
	"github.com/stemsi/exstem-selftest/internal/model"
)

const (
	ScoreBatchSize    = 50
	ScoreBatchTimeout = 2 * time.Second
	ScorePollTimeout  = 1 * time.Second
)

// ScoringWorker drains persist_scores_queue and upserts attempt rows. A row
// leaves IN_PROGRESS at most once; later events never overwrite a finished
// attempt.
type ScoringWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewScoringWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ScoringWorker {
	return &ScoringWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "scoring_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ScoringWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScoringWorker started")

	batch := make([]model.AttemptEvent, 0, ScoreBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ScoreBatchSize || time.Since(lastFlush) >= ScoreBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ScorePollTimeout, config.WorkerKey.PersistScoresQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var ev model.AttemptEvent
			if err := json.Unmarshal([]byte(item[1]), &ev); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}
			if ev.AttemptID == uuid.Nil {
				w.log.Warn().Msg("Attempt event without id, dropping")
				continue
			}

			batch = append(batch, ev)
		}
	}
}

// ----------------------------------------------------------------
// Batch Upsert Wrapper
// ----------------------------------------------------------------

func (w *ScoringWorker) flushSafe(ctx context.Context, batch []model.AttemptEvent) {
	if len(batch) == 0 {
		return
	}
	events := coalesceAttempts(batch)

	if err := w.bulkUpsertAttempts(ctx, events); err != nil {
		w.log.Warn().Err(err).Int("count", len(events)).Msg("bulk attempt upsert failed, using fallback")

		for i := range events {
			ev := &events[i]
			err := w.persistSingle(ctx, ev)
			if err == nil {
				continue
			}
			if isPermanent(err) {
				w.log.Error().Err(err).Str("attempt_id", ev.AttemptID.String()).Msg("Attempt rejected by database, dropping")
				continue
			}
			w.log.Error().Err(err).Str("attempt_id", ev.AttemptID.String()).Msg("Attempt upsert failed, requeueing")
			raw, _ := json.Marshal(ev)
			w.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, raw)
		}
		return
	}

	w.log.Debug().Int("count", len(events)).Msg("Attempts persisted")
}

// coalesceAttempts keeps one event per attempt, in first-seen order. A
// finished event supersedes an in-progress one; otherwise the later wins.
func coalesceAttempts(batch []model.AttemptEvent) []model.AttemptEvent {
	index := make(map[uuid.UUID]int, len(batch))
	out := make([]model.AttemptEvent, 0, len(batch))

	for _, ev := range batch {
		i, seen := index[ev.AttemptID]
		if !seen {
			index[ev.AttemptID] = len(out)
			out = append(out, ev)
			continue
		}
		if out[i].Status != model.AttemptStatusInProgress && ev.Status == model.AttemptStatusInProgress {
			continue
		}
		out[i] = ev
	}
	return out
}

// ----------------------------------------------------------------
// BULK PostgreSQL UPSERT using UNNEST
// ----------------------------------------------------------------

// gradedEssaysSQL sums the essays already scored for an attempt. It is NULL
// when none are, so reviewed_score stays unset until a review lands. Reviews
// may be graded before the attempt row exists.
func gradedEssaysSQL(attemptID string) string {
	return `(SELECT SUM(er.score) FROM essay_reviews er
	         WHERE er.attempt_id = ` + attemptID + ` AND er.score IS NOT NULL)`
}

var upsertAttemptsQuery = `
	INSERT INTO attempts (
		id, bank_id, learner_id, started_at, finished_at,
		status, score, max_score, percentage, record, reviewed_score
	)
	SELECT
		u.id, u.bank_id, u.learner_id, u.started_at, u.finished_at,
		u.status, u.score, u.max_score, u.percentage, u.record::jsonb,
		u.score + ` + gradedEssaysSQL("u.id") + `
	FROM UNNEST(
		$1::uuid[],
		$2::uuid[],
		$3::int[],
		$4::timestamptz[],
		$5::timestamptz[],
		$6::text[],
		$7::float8[],
		$8::float8[],
		$9::int[],
		$10::text[]
	) AS u (id, bank_id, learner_id, started_at, finished_at, status, score, max_score, percentage, record)
	ON CONFLICT (id) DO UPDATE
	SET finished_at = EXCLUDED.finished_at,
	    status      = EXCLUDED.status,
	    score       = EXCLUDED.score,
	    max_score   = EXCLUDED.max_score,
	    percentage  = EXCLUDED.percentage,
	    record      = EXCLUDED.record,
	    reviewed_score = EXCLUDED.reviewed_score
	WHERE attempts.status = 'IN_PROGRESS'
`

func (w *ScoringWorker) bulkUpsertAttempts(ctx context.Context, events []model.AttemptEvent) error {
	n := len(events)
	ids := make([]uuid.UUID, n)
	bankIDs := make([]uuid.UUID, n)
	learners := make([]int, n)
	startedAts := make([]time.Time, n)
	finishedAts := make([]*time.Time, n)
	statuses := make([]string, n)
	scores := make([]*float64, n)
	maxScores := make([]*float64, n)
	percentages := make([]*int, n)
	records := make([]*string, n)

	for i := range events {
		ev := &events[i]
		ids[i] = ev.AttemptID
		bankIDs[i] = ev.BankID
		learners[i] = ev.LearnerID
		startedAts[i] = ev.StartedAt
		finishedAts[i] = ev.FinishedAt
		statuses[i] = string(ev.Status)
		scores[i] = ev.Score
		maxScores[i] = ev.MaxScore
		percentages[i] = ev.Percentage
		records[i] = recordText(ev.Record)
	}

	_, err := w.pool.Exec(ctx, upsertAttemptsQuery,
		ids, bankIDs, learners, startedAts, finishedAts,
		statuses, scores, maxScores, percentages, records,
	)
	return err
}

// ----------------------------------------------------------------
// FALLBACK single upsert
// ----------------------------------------------------------------

var insertAttemptQuery = `
	INSERT INTO attempts (
		id, bank_id, learner_id, started_at, finished_at,
		status, score, max_score, percentage, record, reviewed_score
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb,
		$7::float8 + ` + gradedEssaysSQL("$1::uuid") + `)
	ON CONFLICT (id) DO UPDATE
	SET finished_at = EXCLUDED.finished_at,
	    status      = EXCLUDED.status,
	    score       = EXCLUDED.score,
	    max_score   = EXCLUDED.max_score,
	    percentage  = EXCLUDED.percentage,
	    record      = EXCLUDED.record,
	    reviewed_score = EXCLUDED.reviewed_score
	WHERE attempts.status = 'IN_PROGRESS'
`

func (w *ScoringWorker) persistSingle(ctx context.Context, ev *model.AttemptEvent) error {
	_, err := w.pool.Exec(ctx, insertAttemptQuery,
		ev.AttemptID, ev.BankID, ev.LearnerID, ev.StartedAt, ev.FinishedAt,
		string(ev.Status), ev.Score, ev.MaxScore, ev.Percentage, recordText(ev.Record),
	)
	return err
}

func recordText(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}

// isPermanent reports whether retrying the statement cannot succeed, e.g. a
// foreign key or check violation (SQLSTATE class 23).
func isPermanent(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && len(pgErr.Code) == 5 && pgErr.Code[:2] == "23"
}
