package engine

import (
	"sync"
	"time"
)

// Ticker is a cancellable periodic tick source.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock provides the current time and tick sources.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (t *systemTicker) C() <-chan time.Time { return t.t.C }
func (t *systemTicker) Stop()               { t.t.Stop() }

// ManualClock is a Clock whose ticks are fired explicitly. Tick blocks until
// every running ticker has accepted the tick, which lets tests observe the
// effect of a tick without real-time waits.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers map[*manualTicker]struct{}
}

// NewManualClock creates a ManualClock starting at now.
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now, tickers: map[*manualTicker]struct{}{}}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) NewTicker(time.Duration) Ticker {
	t := &manualTicker{clock: c, ch: make(chan time.Time), done: make(chan struct{})}
	c.mu.Lock()
	c.tickers[t] = struct{}{}
	c.mu.Unlock()
	return t
}

// Tick advances the clock by one second and delivers a tick to every running
// ticker. It returns the number of tickers that received it.
func (c *ManualClock) Tick() int {
	c.mu.Lock()
	c.now = c.now.Add(time.Second)
	now := c.now
	running := make([]*manualTicker, 0, len(c.tickers))
	for t := range c.tickers {
		running = append(running, t)
	}
	c.mu.Unlock()

	delivered := 0
	for _, t := range running {
		select {
		case t.ch <- now:
			delivered++
		case <-t.done:
		}
	}
	return delivered
}

// Running returns the number of tickers that have not been stopped.
func (c *ManualClock) Running() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

type manualTicker struct {
	clock *ManualClock
	ch    chan time.Time
	done  chan struct{}
	once  sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.once.Do(func() {
		t.clock.mu.Lock()
		delete(t.clock.tickers, t)
		t.clock.mu.Unlock()
		close(t.done)
	})
}
