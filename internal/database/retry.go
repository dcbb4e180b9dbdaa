package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	connectAttempts = 5
	connectDelay    = 2 * time.Second
)

// withRetry calls fn until it succeeds, attempts run out or ctx is done. The
// delay doubles after every failure.
func withRetry(ctx context.Context, log zerolog.Logger, what string, attempts int, delay time.Duration, fn func(context.Context) error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		log.Warn().Err(err).Int("attempt", i).Dur("retry_in", delay).Msgf("%s unavailable, retrying", what)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
