package engine

import (
	"time"

	"github.com/stemsi/exstem-selftest/internal/model"
)

// Intent is a named request to change session state. The set is closed.
type Intent interface {
	Name() string
	intent()
}

// Load replaces the question sequence. Only honoured before the exam starts.
type Load struct {
	Questions []model.Question
}

// Start begins the exam. FallbackSeconds overrides DefaultTimeLimit when no
// question carries a time allowance; zero keeps the default.
type Start struct {
	At              time.Time
	FallbackSeconds int
}

// Answer upserts the answer of a question.
type Answer struct {
	QuestionID string
	Value      model.Answer
}

// ToggleReview adds or removes a question from the marked-for-review set.
type ToggleReview struct {
	QuestionID string
}

// Goto moves to an absolute position.
type Goto struct {
	Index int
}

// Next moves one question forward.
type Next struct{}

// Previous moves one question back.
type Previous struct{}

// Tick consumes one second of the remaining time.
type Tick struct{}

// Submit grades the session and completes it.
type Submit struct{}

// Reset discards the session and returns to the initial snapshot.
type Reset struct{}

func (Load) Name() string         { return "load" }
func (Start) Name() string        { return "start" }
func (Answer) Name() string       { return "answer" }
func (ToggleReview) Name() string { return "toggle_review" }
func (Goto) Name() string         { return "goto" }
func (Next) Name() string         { return "next" }
func (Previous) Name() string     { return "previous" }
func (Tick) Name() string         { return "tick" }
func (Submit) Name() string       { return "submit" }
func (Reset) Name() string        { return "reset" }

func (Load) intent()         {}
func (Start) intent()        {}
func (Answer) intent()       {}
func (ToggleReview) intent() {}
func (Goto) intent()         {}
func (Next) intent()         {}
func (Previous) intent()     {}
func (Tick) intent()         {}
func (Submit) intent()       {}
func (Reset) intent()        {}
