package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-selftest/internal/config"
	"github.com/stemsi/exstem-selftest/internal/model"
)

// ResultSink receives attempt lifecycle events and essay review tasks.
type ResultSink interface {
	PushAttempt(ctx context.Context, ev model.AttemptEvent) error
	PushReviews(ctx context.Context, tasks []model.ReviewTask) error
}

// ResultQueue pushes results onto the Redis queues drained by the workers.
type ResultQueue struct {
	rdb *redis.Client
}

// NewResultQueue creates a new ResultQueue.
func NewResultQueue(rdb *redis.Client) *ResultQueue {
	return &ResultQueue{rdb: rdb}
}

// PushAttempt queues an attempt event for the scoring worker.
func (q *ResultQueue) PushAttempt(ctx context.Context, ev model.AttemptEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal attempt event: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, raw).Err()
}

// PushReviews queues essay review tasks for the review worker.
func (q *ResultQueue) PushReviews(ctx context.Context, tasks []model.ReviewTask) error {
	if len(tasks) == 0 {
		return nil
	}
	pipe := q.rdb.Pipeline()
	for _, t := range tasks {
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal review task: %w", err)
		}
		pipe.RPush(ctx, config.WorkerKey.PersistReviewsQueue, raw)
	}
	_, err := pipe.Exec(ctx)
	return err
}
