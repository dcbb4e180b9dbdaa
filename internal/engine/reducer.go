package engine

import (
	"slices"

	"github.com/stemsi/exstem-selftest/internal/model"
)

// Reduce applies an intent to a state and returns the next state. It never
// mutates its input. Intents dispatched outside their source phase, or with
// arguments that do not apply to the loaded questions, return s unchanged.
func Reduce(s State, in Intent) State {
	switch in := in.(type) {
	case Load:
		return load(s, in)
	case Start:
		return start(s, in)
	case Answer:
		return answer(s, in)
	case ToggleReview:
		return toggleReview(s, in)
	case Goto:
		return move(s, in.Index)
	case Next:
		return move(s, s.Position+1)
	case Previous:
		return move(s, s.Position-1)
	case Tick:
		return tick(s)
	case Submit:
		return submit(s)
	case Reset:
		return reset(s)
	}
	return s
}

func load(s State, in Load) State {
	if s.Phase != PhaseInstructions {
		return s
	}
	s.Questions = slices.Clone(in.Questions)
	s.Position = 0
	return s
}

// AllottedSeconds sums the per-question time allowances, falling back when
// no question specifies one.
func AllottedSeconds(questions []model.Question, fallback int) int {
	total := 0
	for _, q := range questions {
		if q.TimeAllowance > 0 {
			total += q.TimeAllowance
		}
	}
	if total > 0 {
		return total
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTimeLimit
}

func start(s State, in Start) State {
	if s.Phase != PhaseInstructions {
		return s
	}
	remaining := AllottedSeconds(s.Questions, in.FallbackSeconds)
	at := in.At
	s.Phase = PhaseInProgress
	s.Position = 0
	s.TimeRemaining = &remaining
	s.StartedAt = &at
	s.Answers = map[string]model.Answer{}
	s.Marked = map[string]struct{}{}
	s.Results = nil
	return s
}

func answer(s State, in Answer) State {
	if s.Phase != PhaseInProgress {
		return s
	}
	i := s.indexOf(in.QuestionID)
	if i < 0 {
		return s
	}
	q := &s.Questions[i]
	if !q.Supported() || !in.Value.Matches(q.Type) {
		return s
	}

	value := in.Value.Clone()
	switch q.Type {
	case model.QuestionTypeSingleChoice:
		if !q.HasOption(value.Index) {
			return s
		}
	case model.QuestionTypeMultiChoice:
		for _, idx := range value.Indices {
			if !q.HasOption(idx) {
				return s
			}
		}
		value = model.MultiChoice(value.Indices...)
	}

	s = s.withAnswers()
	s.Answers[in.QuestionID] = value
	return s
}

func toggleReview(s State, in ToggleReview) State {
	if s.Phase != PhaseInProgress || s.indexOf(in.QuestionID) < 0 {
		return s
	}
	s = s.withMarked()
	if _, ok := s.Marked[in.QuestionID]; ok {
		delete(s.Marked, in.QuestionID)
	} else {
		s.Marked[in.QuestionID] = struct{}{}
	}
	return s
}

func move(s State, to int) State {
	if s.Phase != PhaseInProgress {
		return s
	}
	if to < 0 || to >= len(s.Questions) {
		return s
	}
	s.Position = to
	return s
}

func tick(s State) State {
	if s.Phase != PhaseInProgress || s.TimeRemaining == nil {
		return s
	}
	remaining := *s.TimeRemaining
	if remaining > 0 {
		remaining--
	}
	s.TimeRemaining = &remaining
	if remaining == 0 {
		return submit(s)
	}
	return s
}

func submit(s State) State {
	if s.Phase != PhaseInProgress {
		return s
	}
	record := Score(s.Questions, s.Answers)
	s.Phase = PhaseCompleted
	s.Results = &record
	return s
}

func reset(s State) State {
	if s.Phase == PhaseInstructions {
		return s
	}
	return NewState()
}
