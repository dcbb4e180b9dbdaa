// Package engine implements the self-assessment exam state machine: a pure
// reducer over a closed set of intents, the scoring function, derived
// per-question status, and a single-writer Session that drives the reducer
// from dispatched intents and a cancellable one-second tick source.
package engine

import (
	"maps"
	"time"

	"github.com/stemsi/exstem-selftest/internal/model"
)

// Phase is the macro-state of a session.
type Phase string

const (
	PhaseInstructions Phase = "instructions"
	PhaseInProgress   Phase = "in_progress"
	PhaseCompleted    Phase = "completed"
)

// DefaultTimeLimit is the allotted time in seconds when no question carries
// its own time allowance.
const DefaultTimeLimit = 3600

// State is a snapshot of an exam session. Values returned by Reduce are never
// mutated afterwards, so snapshots may be shared freely between goroutines.
type State struct {
	Phase         Phase                   `json:"phase"`
	Questions     []model.Question        `json:"questions"`
	Position      int                     `json:"position"`
	Answers       map[string]model.Answer `json:"answers"`
	Marked        map[string]struct{}     `json:"-"`
	TimeRemaining *int                    `json:"time_remaining"`
	StartedAt     *time.Time              `json:"started_at"`
	Results       *model.GradingRecord    `json:"results"`
}

// NewState returns the initial snapshot.
func NewState() State {
	return State{
		Phase:   PhaseInstructions,
		Answers: map[string]model.Answer{},
		Marked:  map[string]struct{}{},
	}
}

// Current returns the question at the current position, if any.
func (s State) Current() (model.Question, bool) {
	if s.Position < 0 || s.Position >= len(s.Questions) {
		return model.Question{}, false
	}
	return s.Questions[s.Position], true
}

// IsMarked reports whether the question is flagged for review.
func (s State) IsMarked(questionID string) bool {
	_, ok := s.Marked[questionID]
	return ok
}

// MarkedIDs returns the marked question ids in question order.
func (s State) MarkedIDs() []string {
	ids := make([]string, 0, len(s.Marked))
	for _, q := range s.Questions {
		if s.IsMarked(q.ID) {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

func (s State) indexOf(questionID string) int {
	for i := range s.Questions {
		if s.Questions[i].ID == questionID {
			return i
		}
	}
	return -1
}

func (s State) withAnswers() State {
	s.Answers = maps.Clone(s.Answers)
	if s.Answers == nil {
		s.Answers = map[string]model.Answer{}
	}
	return s
}

func (s State) withMarked() State {
	s.Marked = maps.Clone(s.Marked)
	if s.Marked == nil {
		s.Marked = map[string]struct{}{}
	}
	return s
}
