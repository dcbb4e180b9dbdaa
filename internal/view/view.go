// Package view renders exam session snapshots into the view models consumed
// by the front end: one of the instructions, exam or results screens. Every
// function here is a pure function of engine.State.
package view

import (
	"fmt"

	"github.com/stemsi/exstem-selftest/internal/engine"
	"github.com/stemsi/exstem-selftest/internal/model"
)

// UnsupportedMessage is shown in place of the input of a question whose type
// the engine cannot handle.
const UnsupportedMessage = "unsupported question type"

// InputKind tells the front end which input widget to render.
type InputKind string

const (
	InputRadio       InputKind = "radio"
	InputCheckbox    InputKind = "checkbox"
	InputTextarea    InputKind = "textarea"
	InputUnsupported InputKind = "unsupported"
)

// Screen is the rendered session. Exactly one of the three views is set.
type Screen struct {
	Phase        engine.Phase  `json:"phase"`
	Instructions *Instructions `json:"instructions,omitempty"`
	Exam         *Exam         `json:"exam,omitempty"`
	Results      *Results      `json:"results,omitempty"`
}

// Instructions summarises the exam before it starts.
type Instructions struct {
	QuestionCount int                        `json:"question_count"`
	TotalPoints   float64                    `json:"total_points"`
	TotalSeconds  int                        `json:"total_seconds"`
	Duration      string                     `json:"duration"`
	ByType        map[model.QuestionType]int `json:"by_type"`
}

// TopBar is the exam header.
type TopBar struct {
	TimeRemaining int           `json:"time_remaining"`
	Clock         string        `json:"clock"`
	Progress      engine.Counts `json:"progress"`
}

// Card is the current question as shown to the learner. It never carries the
// answer key.
type Card struct {
	Index       int           `json:"index"`
	Number      int           `json:"number"`
	QuestionID  string        `json:"question_id"`
	Type        string        `json:"type"`
	Input       InputKind     `json:"input"`
	Prompt      string        `json:"prompt"`
	Options     []string      `json:"options,omitempty"`
	Image       *model.Image  `json:"image,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	MaxScore    float64       `json:"max_score"`
	MinWords    int           `json:"min_words,omitempty"`
	MaxWords    int           `json:"max_words,omitempty"`
	WordCount   int           `json:"word_count,omitempty"`
	Answer      *model.Answer `json:"answer,omitempty"`
	Marked      bool          `json:"marked"`
	Placeholder string        `json:"placeholder,omitempty"`
	HasPrevious bool          `json:"has_previous"`
	HasNext     bool          `json:"has_next"`
}

// NavItem is one cell of the question navigator.
type NavItem struct {
	Index      int                   `json:"index"`
	QuestionID string                `json:"question_id"`
	Status     engine.QuestionStatus `json:"status"`
}

// Exam is the in-progress screen. Empty is set when no questions are loaded,
// in which case Card is nil.
type Exam struct {
	TopBar    TopBar    `json:"top_bar"`
	Card      *Card     `json:"card,omitempty"`
	Navigator []NavItem `json:"navigator"`
	Empty     bool      `json:"empty"`
}

// Results is the completed screen.
type Results struct {
	Record        *model.GradingRecord `json:"record"`
	Correct       int                  `json:"correct"`
	Incorrect     int                  `json:"incorrect"`
	PendingReview int                  `json:"pending_review"`
	Unanswered    int                  `json:"unanswered"`
}

// Renderer renders screens for sessions configured with a fallback time limit.
type Renderer struct {
	FallbackSeconds int
}

// Render builds the screen for the session phase using the engine defaults.
func Render(s engine.State) Screen {
	return Renderer{}.Render(s)
}

// Render builds the screen for the session phase.
func (r Renderer) Render(s engine.State) Screen {
	screen := Screen{Phase: s.Phase}
	switch s.Phase {
	case engine.PhaseInProgress:
		screen.Exam = RenderExam(s)
	case engine.PhaseCompleted:
		screen.Results = RenderResults(s)
	default:
		screen.Phase = engine.PhaseInstructions
		screen.Instructions = RenderInstructions(s, r.FallbackSeconds)
	}
	return screen
}

// RenderInstructions summarises the loaded bank. fallback is the allotted time
// used when no question has its own allowance (0 = engine default).
func RenderInstructions(s engine.State, fallback int) *Instructions {
	v := &Instructions{
		QuestionCount: len(s.Questions),
		ByType:        map[model.QuestionType]int{},
	}
	for _, q := range s.Questions {
		v.ByType[q.Type]++
		if q.Supported() && q.MaxScore > 0 {
			v.TotalPoints += q.MaxScore
		}
	}
	v.TotalSeconds = engine.AllottedSeconds(s.Questions, fallback)
	v.Duration = FormatDuration(v.TotalSeconds)
	return v
}

// RenderExam builds the in-progress screen.
func RenderExam(s engine.State) *Exam {
	remaining := 0
	if s.TimeRemaining != nil {
		remaining = *s.TimeRemaining
	}

	v := &Exam{
		TopBar: TopBar{
			TimeRemaining: remaining,
			Clock:         FormatClock(remaining),
			Progress:      engine.Progress(s),
		},
		Navigator: Navigator(s),
	}

	if len(s.Questions) == 0 {
		v.Empty = true
		return v
	}
	v.Card = RenderCard(s)
	return v
}

// Navigator derives the navigator cells from state.
func Navigator(s engine.State) []NavItem {
	statuses := engine.Statuses(s)
	items := make([]NavItem, len(s.Questions))
	for i, q := range s.Questions {
		items[i] = NavItem{Index: i, QuestionID: q.ID, Status: statuses[i]}
	}
	return items
}

// RenderCard builds the card of the current question, or nil when the
// position does not point at a question.
func RenderCard(s engine.State) *Card {
	q, ok := s.Current()
	if !ok {
		return nil
	}

	c := &Card{
		Index:       s.Position,
		Number:      s.Position + 1,
		QuestionID:  q.ID,
		Type:        string(q.Type),
		Prompt:      q.Prompt,
		Image:       q.Image,
		Tags:        q.Tags,
		MaxScore:    q.MaxScore,
		Marked:      s.IsMarked(q.ID),
		HasPrevious: s.Position > 0,
		HasNext:     s.Position < len(s.Questions)-1,
	}
	if a, ok := s.Answers[q.ID]; ok {
		answer := a.Clone()
		c.Answer = &answer
	}

	if !q.Supported() {
		c.Input = InputUnsupported
		c.Placeholder = UnsupportedMessage
		return c
	}

	switch q.Type {
	case model.QuestionTypeSingleChoice:
		c.Input = InputRadio
		c.Options = q.Options
	case model.QuestionTypeMultiChoice:
		c.Input = InputCheckbox
		c.Options = q.Options
	case model.QuestionTypeEssay:
		c.Input = InputTextarea
		c.MinWords = q.MinWords
		c.MaxWords = q.MaxWords
		if c.Answer != nil {
			c.WordCount = WordCount(c.Answer.Text)
		}
	}
	return c
}

// RenderResults builds the completed screen.
func RenderResults(s engine.State) *Results {
	v := &Results{Record: s.Results.Clone()}
	if v.Record == nil {
		return v
	}
	for _, r := range v.Record.Breakdown {
		switch {
		case r.Submitted == nil || r.Submitted.IsEmpty():
			v.Unanswered++
		case r.PendingReview:
			v.PendingReview++
		case r.IsCorrect:
			v.Correct++
		default:
			v.Incorrect++
		}
	}
	return v
}

// FormatClock renders seconds as mm:ss, or h:mm:ss past an hour.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, sec := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}

// FormatDuration renders seconds in a human readable form.
func FormatDuration(seconds int) string {
	h, m, sec := seconds/3600, (seconds%3600)/60, seconds%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0 && sec > 0:
		return fmt.Sprintf("%dm %ds", m, sec)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", sec)
}
