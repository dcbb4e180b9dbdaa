package engine

import (
	"encoding/json"
	"testing"

	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func singleQ(id string, correct int, maxScore float64) model.Question {
	return model.Question{
		ID:       id,
		Type:     model.QuestionTypeSingleChoice,
		Prompt:   "pick one",
		Options:  []string{"A", "B", "C"},
		Correct:  model.CorrectAnswer{Index: intPtr(correct)},
		MaxScore: maxScore,
	}
}

func multiQ(id string, correct []int, maxScore float64) model.Question {
	return model.Question{
		ID:       id,
		Type:     model.QuestionTypeMultiChoice,
		Prompt:   "pick many",
		Options:  []string{"A", "B", "C", "D"},
		Correct:  model.CorrectAnswer{Indices: correct},
		MaxScore: maxScore,
	}
}

func essayQ(id string, maxScore float64) model.Question {
	return model.Question{
		ID:       id,
		Type:     model.QuestionTypeEssay,
		Prompt:   "explain",
		Correct:  model.CorrectAnswer{Reference: "reference answer"},
		MaxScore: maxScore,
	}
}

func TestScore_SingleChoice(t *testing.T) {
	questions := []model.Question{singleQ("1", 1, 10)}

	tests := []struct {
		name    string
		answers map[string]model.Answer
		correct bool
		score   float64
	}{
		{name: "correct index", answers: map[string]model.Answer{"1": model.SingleChoice(1)}, correct: true, score: 10},
		{name: "wrong index", answers: map[string]model.Answer{"1": model.SingleChoice(0)}, correct: false, score: 0},
		{name: "no answer", answers: map[string]model.Answer{}, correct: false, score: 0},
		{name: "wrong shape", answers: map[string]model.Answer{"1": model.EssayText("1")}, correct: false, score: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(questions, tc.answers)
			require.Len(t, got.Breakdown, 1)
			assert.Equal(t, tc.correct, got.Breakdown[0].IsCorrect)
			assert.Equal(t, tc.score, got.Breakdown[0].Score)
			assert.Equal(t, tc.score, got.TotalScore)
			assert.Equal(t, 10.0, got.MaxScore)
		})
	}
}

func TestScore_MultiChoiceSetEquality(t *testing.T) {
	questions := []model.Question{multiQ("2", []int{0, 2}, 5)}

	tests := []struct {
		name    string
		answer  model.Answer
		correct bool
		score   float64
	}{
		{name: "same set different order", answer: model.Answer{Kind: model.AnswerKindIndices, Indices: []int{2, 0}}, correct: true, score: 5},
		{name: "superset", answer: model.MultiChoice(0, 1, 2), correct: false, score: 0},
		{name: "subset", answer: model.MultiChoice(0), correct: false, score: 0},
		{name: "empty set", answer: model.MultiChoice(), correct: false, score: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(questions, map[string]model.Answer{"2": tc.answer})
			assert.Equal(t, tc.correct, got.Breakdown[0].IsCorrect)
			assert.Equal(t, tc.score, got.Breakdown[0].Score)
		})
	}
}

func TestScore_EssayPendingReview(t *testing.T) {
	text := "  Photosynthesis converts light\ninto chemical energy.  "
	got := Score([]model.Question{essayQ("3", 20)}, map[string]model.Answer{"3": model.EssayText(text)})

	r := got.Breakdown[0]
	assert.False(t, r.IsCorrect)
	assert.Zero(t, r.Score)
	assert.True(t, r.PendingReview)
	require.NotNil(t, r.Submitted)
	assert.Equal(t, text, r.Submitted.Text)
	assert.Equal(t, 20.0, got.MaxScore)
	assert.Zero(t, got.Percentage)
}

func TestScore_UnsupportedTypeContributesNothing(t *testing.T) {
	questions := []model.Question{
		singleQ("1", 0, 4),
		{ID: "x", Type: "MATCHING", Prompt: "match", MaxScore: 6},
	}
	got := Score(questions, map[string]model.Answer{"1": model.SingleChoice(0)})

	assert.Equal(t, 4.0, got.TotalScore)
	assert.Equal(t, 4.0, got.MaxScore)
	assert.Equal(t, 100, got.Percentage)
	assert.False(t, got.Breakdown[1].IsCorrect)
	assert.Zero(t, got.Breakdown[1].MaxScore)
}

func TestScore_PercentageRounding(t *testing.T) {
	questions := []model.Question{singleQ("a", 0, 1), singleQ("b", 0, 1), singleQ("c", 0, 1)}
	got := Score(questions, map[string]model.Answer{"a": model.SingleChoice(0), "b": model.SingleChoice(0)})

	assert.Equal(t, 2.0, got.TotalScore)
	assert.Equal(t, 67, got.Percentage)
}

func TestScore_ZeroMaximum(t *testing.T) {
	got := Score([]model.Question{singleQ("1", 0, 0)}, map[string]model.Answer{"1": model.SingleChoice(0)})
	assert.Zero(t, got.Percentage)

	empty := Score(nil, nil)
	assert.Zero(t, empty.Percentage)
	assert.Empty(t, empty.Breakdown)
}

func TestScore_Deterministic(t *testing.T) {
	questions := []model.Question{singleQ("1", 1, 10), multiQ("2", []int{0, 2}, 5), essayQ("3", 20)}
	answers := map[string]model.Answer{
		"1": model.SingleChoice(1),
		"2": model.MultiChoice(2, 0),
		"3": model.EssayText("because"),
	}

	first, err := json.Marshal(Score(questions, answers))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := json.Marshal(Score(questions, answers))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestScore_Bounds(t *testing.T) {
	questions := []model.Question{
		singleQ("1", 1, 10),
		multiQ("2", []int{0, 2}, 5),
		essayQ("3", 20),
		singleQ("4", 2, -3),
	}
	answerSets := []map[string]model.Answer{
		{},
		{"1": model.SingleChoice(1), "2": model.MultiChoice(0, 2), "4": model.SingleChoice(2)},
		{"1": model.SingleChoice(0), "3": model.EssayText("x")},
	}

	for _, answers := range answerSets {
		got := Score(questions, answers)
		assert.GreaterOrEqual(t, got.TotalScore, 0.0)
		assert.LessOrEqual(t, got.TotalScore, got.MaxScore)
		assert.GreaterOrEqual(t, got.Percentage, 0)
		assert.LessOrEqual(t, got.Percentage, 100)
	}
}
