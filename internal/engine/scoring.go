package engine

import (
	"math"
	"slices"

	"github.com/stemsi/exstem-selftest/internal/model"
)

// Score grades the answers against the question sequence. It is pure: the
// same inputs always produce an identical record, with the breakdown in
// question order.
//
// Single choice is correct when the submitted index equals the key. Multi
// choice is correct only when the submitted set equals the key set, without
// partial credit. Essays score 0 and stay pending manual review. Questions of
// an unsupported type add nothing to either the achieved or the maximum score.
func Score(questions []model.Question, answers map[string]model.Answer) model.GradingRecord {
	record := model.GradingRecord{
		Breakdown: make([]model.QuestionResult, 0, len(questions)),
	}

	for i := range questions {
		q := &questions[i]
		result := model.QuestionResult{
			QuestionID: q.ID,
			Correct:    q.Correct,
		}
		if a, ok := answers[q.ID]; ok {
			submitted := a.Clone()
			result.Submitted = &submitted
		}

		if !q.Supported() {
			record.Breakdown = append(record.Breakdown, result)
			continue
		}

		maxScore := math.Max(q.MaxScore, 0)
		result.MaxScore = maxScore
		record.MaxScore += maxScore

		switch q.Type {
		case model.QuestionTypeSingleChoice:
			result.IsCorrect = singleCorrect(q, result.Submitted)
		case model.QuestionTypeMultiChoice:
			result.IsCorrect = multiCorrect(q, result.Submitted)
		case model.QuestionTypeEssay:
			result.PendingReview = true
		}

		if result.IsCorrect {
			result.Score = maxScore
			record.TotalScore += maxScore
		}
		record.Breakdown = append(record.Breakdown, result)
	}

	record.Percentage = Percentage(record.TotalScore, record.MaxScore)
	return record
}

// Percentage rounds achieved/max to the nearest integer percent, 0 when max is 0.
func Percentage(achieved, max float64) int {
	if max <= 0 {
		return 0
	}
	return int(math.Round(achieved / max * 100))
}

func singleCorrect(q *model.Question, a *model.Answer) bool {
	if a == nil || a.Kind != model.AnswerKindIndex || q.Correct.Index == nil {
		return false
	}
	return a.Index == *q.Correct.Index
}

func multiCorrect(q *model.Question, a *model.Answer) bool {
	if a == nil || a.Kind != model.AnswerKindIndices || len(q.Correct.Indices) == 0 {
		return false
	}
	return slices.Equal(normalise(a.Indices), normalise(q.Correct.Indices))
}

func normalise(indices []int) []int {
	out := slices.Clone(indices)
	slices.Sort(out)
	return slices.Compact(out)
}
