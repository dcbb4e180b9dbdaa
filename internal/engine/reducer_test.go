package engine

import (
	"testing"
	"time"

	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var startAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleQuestions() []model.Question {
	return []model.Question{singleQ("1", 1, 10), multiQ("2", []int{0, 2}, 5), essayQ("3", 20)}
}

func started(t *testing.T, questions []model.Question) State {
	t.Helper()
	s := Reduce(NewState(), Load{Questions: questions})
	s = Reduce(s, Start{At: startAt})
	require.Equal(t, PhaseInProgress, s.Phase)
	return s
}

func TestReduce_StartComputesAllottedTime(t *testing.T) {
	t.Run("falls back to default", func(t *testing.T) {
		s := started(t, sampleQuestions())
		require.NotNil(t, s.TimeRemaining)
		assert.Equal(t, DefaultTimeLimit, *s.TimeRemaining)
		require.NotNil(t, s.StartedAt)
		assert.Equal(t, startAt, *s.StartedAt)
	})

	t.Run("sums per-question allowances", func(t *testing.T) {
		qs := sampleQuestions()
		qs[0].TimeAllowance = 60
		qs[2].TimeAllowance = 300
		s := started(t, qs)
		assert.Equal(t, 360, *s.TimeRemaining)
	})

	t.Run("custom fallback", func(t *testing.T) {
		s := Reduce(Reduce(NewState(), Load{Questions: sampleQuestions()}), Start{At: startAt, FallbackSeconds: 900})
		assert.Equal(t, 900, *s.TimeRemaining)
	})

	t.Run("start outside instructions is ignored", func(t *testing.T) {
		s := started(t, sampleQuestions())
		s = Reduce(s, Tick{})
		again := Reduce(s, Start{At: startAt.Add(time.Hour)})
		assert.Equal(t, *s.TimeRemaining, *again.TimeRemaining)
		assert.Equal(t, startAt, *again.StartedAt)
	})
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := started(t, sampleQuestions())
	next := Reduce(s, Answer{QuestionID: "1", Value: model.SingleChoice(2)})
	next = Reduce(next, ToggleReview{QuestionID: "2"})

	assert.Empty(t, s.Answers)
	assert.Empty(t, s.Marked)
	assert.Len(t, next.Answers, 1)
	assert.True(t, next.IsMarked("2"))
}

func TestReduce_Answer(t *testing.T) {
	s := started(t, sampleQuestions())

	s = Reduce(s, Answer{QuestionID: "1", Value: model.SingleChoice(0)})
	s = Reduce(s, Answer{QuestionID: "1", Value: model.SingleChoice(2)})
	assert.Equal(t, model.SingleChoice(2), s.Answers["1"])

	s = Reduce(s, Answer{QuestionID: "2", Value: model.Answer{Kind: model.AnswerKindIndices, Indices: []int{2, 0, 2}}})
	assert.Equal(t, []int{0, 2}, s.Answers["2"].Indices)

	s = Reduce(s, Answer{QuestionID: "3", Value: model.EssayText("free text")})
	assert.Equal(t, "free text", s.Answers["3"].Text)

	ignored := []Answer{
		{QuestionID: "missing", Value: model.SingleChoice(0)},
		{QuestionID: "1", Value: model.SingleChoice(7)},
		{QuestionID: "1", Value: model.MultiChoice(1)},
		{QuestionID: "2", Value: model.MultiChoice(0, 9)},
		{QuestionID: "3", Value: model.SingleChoice(0)},
	}
	for _, in := range ignored {
		next := Reduce(s, in)
		assert.Equal(t, s.Answers, next.Answers, "intent %+v", in)
	}
}

func TestReduce_AnswerUnsupportedQuestionIgnored(t *testing.T) {
	qs := append(sampleQuestions(), model.Question{ID: "x", Type: "", Prompt: "broken"})
	s := started(t, qs)
	s = Reduce(s, Answer{QuestionID: "x", Value: model.EssayText("hi")})
	assert.NotContains(t, s.Answers, "x")
}

func TestReduce_ToggleReview(t *testing.T) {
	s := started(t, sampleQuestions())
	s = Reduce(s, ToggleReview{QuestionID: "2"})
	assert.True(t, s.IsMarked("2"))
	s = Reduce(s, ToggleReview{QuestionID: "2"})
	assert.False(t, s.IsMarked("2"))

	s = Reduce(s, ToggleReview{QuestionID: "nope"})
	assert.Empty(t, s.Marked)
}

func TestReduce_NavigationClamping(t *testing.T) {
	s := started(t, sampleQuestions())

	s = Reduce(s, Previous{})
	assert.Equal(t, 0, s.Position)

	s = Reduce(s, Next{})
	s = Reduce(s, Next{})
	assert.Equal(t, 2, s.Position)
	s = Reduce(s, Next{})
	assert.Equal(t, 2, s.Position)

	s = Reduce(s, Goto{Index: 1})
	assert.Equal(t, 1, s.Position)
	s = Reduce(s, Goto{Index: 3})
	assert.Equal(t, 1, s.Position)
	s = Reduce(s, Goto{Index: -1})
	assert.Equal(t, 1, s.Position)
}

func TestReduce_EmptyBank(t *testing.T) {
	s := started(t, nil)
	_, ok := s.Current()
	assert.False(t, ok)

	s = Reduce(s, Next{})
	s = Reduce(s, Goto{Index: 0})
	assert.Equal(t, 0, s.Position)

	s = Reduce(s, Submit{})
	assert.Equal(t, PhaseCompleted, s.Phase)
	assert.Zero(t, s.Results.Percentage)
}

func TestReduce_TickCountsDownAndAutoSubmits(t *testing.T) {
	qs := []model.Question{singleQ("1", 1, 10)}
	qs[0].TimeAllowance = 2
	s := started(t, qs)
	s = Reduce(s, Answer{QuestionID: "1", Value: model.SingleChoice(1)})

	s = Reduce(s, Tick{})
	assert.Equal(t, 1, *s.TimeRemaining)
	assert.Equal(t, PhaseInProgress, s.Phase)

	s = Reduce(s, Tick{})
	assert.Equal(t, 0, *s.TimeRemaining)
	assert.Equal(t, PhaseCompleted, s.Phase)
	require.NotNil(t, s.Results)
	assert.Equal(t, 10.0, s.Results.TotalScore)

	after := Reduce(s, Tick{})
	assert.Equal(t, 0, *after.TimeRemaining)
	assert.Same(t, s.Results, after.Results)
}

func TestReduce_SubmitIsIdempotent(t *testing.T) {
	s := started(t, sampleQuestions())
	s = Reduce(s, Answer{QuestionID: "1", Value: model.SingleChoice(1)})

	once := Reduce(s, Submit{})
	twice := Reduce(once, Submit{})

	require.NotNil(t, once.Results)
	assert.Same(t, once.Results, twice.Results)
	assert.Equal(t, *once.Results, *twice.Results)
}

func TestReduce_CompletedIsFrozen(t *testing.T) {
	s := started(t, sampleQuestions())
	s = Reduce(s, Goto{Index: 1})
	s = Reduce(s, Submit{})

	frozen := []Intent{
		Answer{QuestionID: "1", Value: model.SingleChoice(0)},
		ToggleReview{QuestionID: "1"},
		Goto{Index: 2},
		Next{},
		Previous{},
		Tick{},
		Start{At: startAt},
		Load{Questions: nil},
	}
	for _, in := range frozen {
		next := Reduce(s, in)
		assert.Equal(t, 1, next.Position, in.Name())
		assert.Empty(t, next.Answers, in.Name())
		assert.Empty(t, next.Marked, in.Name())
		assert.Len(t, next.Questions, 3, in.Name())
		assert.Same(t, s.Results, next.Results, in.Name())
	}
}

func TestReduce_IntentsBeforeStartAreIgnored(t *testing.T) {
	s := Reduce(NewState(), Load{Questions: sampleQuestions()})
	for _, in := range []Intent{
		Answer{QuestionID: "1", Value: model.SingleChoice(0)},
		ToggleReview{QuestionID: "1"},
		Next{},
		Tick{},
		Submit{},
		Reset{},
	} {
		next := Reduce(s, in)
		assert.Equal(t, PhaseInstructions, next.Phase, in.Name())
		assert.Empty(t, next.Answers, in.Name())
		assert.Nil(t, next.Results, in.Name())
		assert.Nil(t, next.TimeRemaining, in.Name())
	}
}

func TestReduce_ResetClearsEverything(t *testing.T) {
	s := started(t, sampleQuestions())
	s = Reduce(s, Answer{QuestionID: "1", Value: model.SingleChoice(1)})
	s = Reduce(s, ToggleReview{QuestionID: "2"})
	s = Reduce(s, Next{})
	s = Reduce(s, Submit{})

	s = Reduce(s, Reset{})
	assert.Equal(t, PhaseInstructions, s.Phase)
	assert.Empty(t, s.Answers)
	assert.Empty(t, s.Marked)
	assert.Equal(t, 0, s.Position)
	assert.Nil(t, s.Results)
	assert.Nil(t, s.TimeRemaining)
	assert.Nil(t, s.StartedAt)
}
