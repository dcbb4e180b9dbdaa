package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/model"
)

// ErrSessionClosed is returned when dispatching into a closed session.
var ErrSessionClosed = errors.New("session is closed")

// TickInterval is the countdown cadence.
const TickInterval = time.Second

const loadTimeout = 10 * time.Second

// Loader supplies the question sequence. It is called once when the session
// is created and again after every reset.
type Loader func(ctx context.Context) ([]model.Question, error)

// Options configures a Session.
type Options struct {
	ID              string
	Clock           Clock
	Loader          Loader
	FallbackSeconds int
	// Lifecycle hooks run on the session goroutine and must not block.
	// OnStart fires on entering in progress, OnComplete exactly once per
	// grading record, OnAbandon when an in-progress attempt is reset or the
	// session is closed.
	OnStart    func(id string, s State)
	OnComplete func(id string, s State)
	OnAbandon  func(id string, s State)
	Log        zerolog.Logger
}

type request struct {
	intent Intent
	reply  chan State
}

// Session owns one exam State. A single goroutine applies every dispatched
// intent and every timer tick in order, so transitions never interleave. The
// countdown ticker only exists while the phase is in progress.
type Session struct {
	id       string
	opts     Options
	requests chan request
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	lastActivity atomic.Int64

	mu          sync.Mutex
	subscribers map[chan State]struct{}
}

// NewSession loads the question bank and starts the session goroutine in the
// instructions phase.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}

	state := NewState()
	if opts.Loader != nil {
		questions, err := opts.Loader(ctx)
		if err != nil {
			return nil, fmt.Errorf("load questions: %w", err)
		}
		state = Reduce(state, Load{Questions: questions})
	}

	s := &Session{
		id:          opts.ID,
		opts:        opts,
		requests:    make(chan request),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		subscribers: map[chan State]struct{}{},
	}
	s.opts.Log = opts.Log.With().Str("session_id", opts.ID).Logger()
	s.touch()

	go s.run(state)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Dispatch applies an intent and returns the resulting snapshot.
func (s *Session) Dispatch(ctx context.Context, in Intent) (State, error) {
	if in == nil {
		return s.Snapshot(ctx)
	}
	return s.do(ctx, in)
}

// Snapshot returns the current state.
func (s *Session) Snapshot(ctx context.Context) (State, error) {
	return s.do(ctx, nil)
}

func (s *Session) do(ctx context.Context, in Intent) (State, error) {
	req := request{intent: in, reply: make(chan State, 1)}
	select {
	case s.requests <- req:
	case <-s.done:
		return State{}, ErrSessionClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}

	select {
	case st := <-req.reply:
		return st, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Subscribe returns a channel receiving the latest snapshot after every
// transition. Slow readers only see the most recent state. The channel is
// closed when the session closes or cancel is called.
func (s *Session) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subscribers[ch]; ok {
				delete(s.subscribers, ch)
				close(ch)
			}
		})
	}
}

// LastActivity returns when an intent was last dispatched.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close stops the session goroutine and cancels its ticker.
func (s *Session) Close() {
	s.stopOnce.Do(func() { close(s.quit) })
	<-s.done
}

func (s *Session) touch() {
	s.lastActivity.Store(s.opts.Clock.Now().UnixNano())
}

func (s *Session) run(state State) {
	var ticker Ticker
	var tickC <-chan time.Time

	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
		s.mu.Lock()
		close(s.done)
		for ch := range s.subscribers {
			close(ch)
		}
		s.subscribers = map[chan State]struct{}{}
		s.mu.Unlock()
		s.opts.Log.Debug().Msg("Session closed")
	}()

	for {
		select {
		case <-s.quit:
			if state.Phase == PhaseInProgress {
				s.opts.Log.Info().Msg("Session closed mid-attempt")
				if s.opts.OnAbandon != nil {
					s.opts.OnAbandon(s.id, state)
				}
			}
			return

		case req := <-s.requests:
			if req.intent != nil {
				s.touch()
				state = s.apply(state, req.intent)
			}
			ticker, tickC = s.syncTicker(state, ticker, tickC)
			req.reply <- state

		case <-tickC:
			state = s.apply(state, Tick{})
			ticker, tickC = s.syncTicker(state, ticker, tickC)
		}
	}
}

// syncTicker keeps the countdown ticker in step with the phase. It runs
// before a reply is sent so callers observe a settled timer.
func (s *Session) syncTicker(state State, ticker Ticker, tickC <-chan time.Time) (Ticker, <-chan time.Time) {
	switch {
	case state.Phase == PhaseInProgress && ticker == nil:
		ticker = s.opts.Clock.NewTicker(TickInterval)
		return ticker, ticker.C()
	case state.Phase != PhaseInProgress && ticker != nil:
		ticker.Stop()
		return nil, nil
	}
	return ticker, tickC
}

func (s *Session) apply(prev State, in Intent) State {
	if st, ok := in.(Start); ok {
		if st.At.IsZero() {
			st.At = s.opts.Clock.Now()
		}
		if st.FallbackSeconds == 0 {
			st.FallbackSeconds = s.opts.FallbackSeconds
		}
		in = st
	}

	next := Reduce(prev, in)

	if prev.Phase == PhaseInstructions && next.Phase == PhaseInProgress {
		s.opts.Log.Info().
			Int("questions", len(next.Questions)).
			Int("time_remaining", *next.TimeRemaining).
			Msg("Session started")
		if s.opts.OnStart != nil {
			s.opts.OnStart(s.id, next)
		}
	}

	if prev.Phase == PhaseInProgress && next.Phase == PhaseInstructions {
		s.opts.Log.Info().Msg("Session abandoned")
		if s.opts.OnAbandon != nil {
			s.opts.OnAbandon(s.id, prev)
		}
	}

	if prev.Phase == PhaseInProgress && next.Phase == PhaseCompleted {
		s.opts.Log.Info().
			Str("trigger", in.Name()).
			Float64("score", next.Results.TotalScore).
			Float64("max_score", next.Results.MaxScore).
			Int("percentage", next.Results.Percentage).
			Msg("Session completed")
		if s.opts.OnComplete != nil {
			s.opts.OnComplete(s.id, next)
		}
	}

	if prev.Phase != PhaseInstructions && next.Phase == PhaseInstructions {
		next = s.reload(next)
	}

	s.publish(next)
	return next
}

func (s *Session) reload(st State) State {
	if s.opts.Loader == nil {
		return st
	}
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	questions, err := s.opts.Loader(ctx)
	if err != nil {
		s.opts.Log.Warn().Err(err).Msg("Question bank reload failed, continuing with an empty bank")
		return st
	}
	return Reduce(st, Load{Questions: questions})
}

func (s *Session) publish(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}
