package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/engine"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/view"
)

// Session errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotSessionOwner = errors.New("session belongs to another learner")
)

const (
	outboxSize  = 1024
	pushTimeout = 5 * time.Second
)

// BankLoader supplies the questions of a bank.
type BankLoader interface {
	Questions(ctx context.Context, bankID uuid.UUID) ([]model.Question, error)
}

// SessionConfig tunes live sessions.
type SessionConfig struct {
	// FallbackSeconds is the time limit of banks without per-question allowances.
	FallbackSeconds int
	// IdleTimeout closes sessions without intents for this long. Zero disables the sweep.
	IdleTimeout time.Duration
	Clock       engine.Clock
}

// LiveSession is an in-memory exam session owned by one learner. Its state is
// never persisted; only the attempt trace is.
type LiveSession struct {
	*engine.Session
	ID        uuid.UUID
	LearnerID int
	BankID    uuid.UUID

	mu        sync.Mutex
	attemptID uuid.UUID
	startedAt time.Time
}

// AttemptID returns the attempt currently traced for the session, or uuid.Nil
// before the first start.
func (l *LiveSession) AttemptID() uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attemptID
}

// SessionService owns every live exam session of this process.
type SessionService struct {
	loader BankLoader
	sink   ResultSink
	cfg    SessionConfig
	log    zerolog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*LiveSession

	outMu      sync.RWMutex
	outClosed  bool
	outbox     chan func(ctx context.Context) error
	outboxDone chan struct{}
}

// NewSessionService creates a new SessionService and starts its result outbox.
func NewSessionService(loader BankLoader, sink ResultSink, cfg SessionConfig, log zerolog.Logger) *SessionService {
	if cfg.Clock == nil {
		cfg.Clock = engine.SystemClock{}
	}
	s := &SessionService{
		loader:     loader,
		sink:       sink,
		cfg:        cfg,
		log:        log.With().Str("component", "session_service").Logger(),
		sessions:   map[uuid.UUID]*LiveSession{},
		outbox:     make(chan func(ctx context.Context) error, outboxSize),
		outboxDone: make(chan struct{}),
	}
	go s.drainOutbox()
	return s
}

// Renderer returns the view renderer matching the session configuration.
func (s *SessionService) Renderer() view.Renderer {
	return view.Renderer{FallbackSeconds: s.cfg.FallbackSeconds}
}

// Create opens a live session on a bank in the instructions phase.
func (s *SessionService) Create(ctx context.Context, learnerID int, bankID uuid.UUID) (*LiveSession, engine.State, error) {
	live := &LiveSession{
		ID:        uuid.New(),
		LearnerID: learnerID,
		BankID:    bankID,
	}

	sess, err := engine.NewSession(ctx, engine.Options{
		ID:    live.ID.String(),
		Clock: s.cfg.Clock,
		Loader: func(ctx context.Context) ([]model.Question, error) {
			return s.loader.Questions(ctx, bankID)
		},
		FallbackSeconds: s.cfg.FallbackSeconds,
		OnStart:         func(_ string, st engine.State) { s.onStart(live, st) },
		OnComplete:      func(_ string, st engine.State) { s.onComplete(live, st) },
		OnAbandon:       func(_ string, st engine.State) { s.onAbandon(live, st) },
		Log: s.log.With().
			Int("learner_id", learnerID).
			Str("bank_id", bankID.String()).
			Logger(),
	})
	if err != nil {
		return nil, engine.State{}, err
	}
	live.Session = sess

	st, err := sess.Snapshot(ctx)
	if err != nil {
		sess.Close()
		return nil, engine.State{}, err
	}

	s.mu.Lock()
	s.sessions[live.ID] = live
	s.mu.Unlock()

	s.log.Info().
		Str("session_id", live.ID.String()).
		Int("learner_id", learnerID).
		Str("bank_id", bankID.String()).
		Int("questions", len(st.Questions)).
		Msg("Session created")
	return live, st, nil
}

// Get returns a live session owned by the learner.
func (s *SessionService) Get(id uuid.UUID, learnerID int) (*LiveSession, error) {
	s.mu.RLock()
	live, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if live.LearnerID != learnerID {
		return nil, ErrNotSessionOwner
	}
	return live, nil
}

// Dispatch applies an intent to a learner's session. A nil intent returns the
// current snapshot.
func (s *SessionService) Dispatch(ctx context.Context, id uuid.UUID, learnerID int, in engine.Intent) (engine.State, error) {
	live, err := s.Get(id, learnerID)
	if err != nil {
		return engine.State{}, err
	}
	st, err := live.Dispatch(ctx, in)
	if errors.Is(err, engine.ErrSessionClosed) {
		return engine.State{}, ErrSessionNotFound
	}
	return st, err
}

// End closes a learner's session. An attempt still in progress is recorded
// as abandoned.
func (s *SessionService) End(id uuid.UUID, learnerID int) error {
	live, err := s.Get(id, learnerID)
	if err != nil {
		return err
	}
	s.remove(id)
	live.Close()
	s.log.Info().Str("session_id", id.String()).Msg("Session ended")
	return nil
}

// Count returns the number of live sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep closes every session idle since before now minus the idle timeout
// and returns how many were closed.
func (s *SessionService) Sweep(now time.Time) int {
	if s.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-s.cfg.IdleTimeout)

	var idle []*LiveSession
	s.mu.Lock()
	for id, live := range s.sessions {
		if live.LastActivity().Before(cutoff) {
			idle = append(idle, live)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, live := range idle {
		live.Close()
	}
	if len(idle) > 0 {
		s.log.Info().Int("closed", len(idle)).Int("live", s.Count()).Msg("Idle sessions swept")
	}
	return len(idle)
}

// RunJanitor sweeps idle sessions every interval until ctx is cancelled.
// Call in a goroutine.
func (s *SessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", interval).Dur("idle_timeout", s.cfg.IdleTimeout).Msg("Session janitor started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Session janitor stopped")
			return
		case <-ticker.C:
			s.Sweep(s.cfg.Clock.Now())
		}
	}
}

// Shutdown closes every live session and flushes pending results.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	live := make([]*LiveSession, 0, len(s.sessions))
	for _, l := range s.sessions {
		live = append(live, l)
	}
	s.sessions = map[uuid.UUID]*LiveSession{}
	s.mu.Unlock()

	for _, l := range live {
		l.Close()
	}

	s.outMu.Lock()
	if !s.outClosed {
		s.outClosed = true
		close(s.outbox)
	}
	s.outMu.Unlock()
	<-s.outboxDone
	s.log.Info().Int("closed", len(live)).Msg("Sessions shut down")
}

func (s *SessionService) remove(id uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// ─── Attempt tracing ────────────────────────────────────────────────
// The hooks below run on the session goroutine. They only enqueue work.

func (s *SessionService) onStart(live *LiveSession, st engine.State) {
	live.mu.Lock()
	live.attemptID = uuid.New()
	live.startedAt = *st.StartedAt
	ev := s.attemptEvent(live, model.AttemptStatusInProgress)
	live.mu.Unlock()

	s.enqueue(func(ctx context.Context) error { return s.sink.PushAttempt(ctx, ev) })
}

func (s *SessionService) onAbandon(live *LiveSession, _ engine.State) {
	live.mu.Lock()
	ev := s.attemptEvent(live, model.AttemptStatusAbandoned)
	live.mu.Unlock()

	s.enqueue(func(ctx context.Context) error { return s.sink.PushAttempt(ctx, ev) })
}

func (s *SessionService) onComplete(live *LiveSession, st engine.State) {
	live.mu.Lock()
	ev := s.attemptEvent(live, model.AttemptStatusCompleted)
	live.mu.Unlock()

	rec := st.Results
	record, err := json.Marshal(rec)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", live.ID.String()).Msg("Failed to encode grading record")
	}
	score, maxScore, pct := rec.TotalScore, rec.MaxScore, rec.Percentage
	ev.Score, ev.MaxScore, ev.Percentage, ev.Record = &score, &maxScore, &pct, record

	tasks := ReviewTasks(ev.AttemptID, rec)

	s.enqueue(func(ctx context.Context) error {
		if err := s.sink.PushAttempt(ctx, ev); err != nil {
			return err
		}
		return s.sink.PushReviews(ctx, tasks)
	})
}

func (s *SessionService) attemptEvent(live *LiveSession, status model.AttemptStatus) model.AttemptEvent {
	ev := model.AttemptEvent{
		AttemptID: live.attemptID,
		BankID:    live.BankID,
		LearnerID: live.LearnerID,
		Status:    status,
		StartedAt: live.startedAt,
	}
	if status != model.AttemptStatusInProgress {
		now := s.cfg.Clock.Now()
		ev.FinishedAt = &now
	}
	return ev
}

// ReviewTasks lists the answered essays of a grading record for manual review.
func ReviewTasks(attemptID uuid.UUID, rec *model.GradingRecord) []model.ReviewTask {
	if rec == nil {
		return nil
	}

	var tasks []model.ReviewTask
	for _, r := range rec.Breakdown {
		if !r.PendingReview || r.Submitted == nil || r.Submitted.IsEmpty() {
			continue
		}
		tasks = append(tasks, model.ReviewTask{
			AttemptID:  attemptID,
			QuestionID: r.QuestionID,
			Answer:     r.Submitted.Text,
			Reference:  r.Correct.Reference,
			MaxScore:   r.MaxScore,
		})
	}
	return tasks
}

func (s *SessionService) enqueue(job func(ctx context.Context) error) {
	s.outMu.RLock()
	defer s.outMu.RUnlock()
	if s.outClosed {
		s.log.Warn().Msg("Result outbox closed, dropping attempt update")
		return
	}
	select {
	case s.outbox <- job:
	default:
		s.log.Error().Msg("Result outbox full, dropping attempt update")
	}
}

func (s *SessionService) drainOutbox() {
	defer close(s.outboxDone)
	for job := range s.outbox {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		if err := job(ctx); err != nil {
			s.log.Error().Err(fmt.Errorf("push result: %w", err)).Msg("Failed to queue attempt result")
		}
		cancel()
	}
}
