package bank

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/validator"
)

// Issue describes what is wrong with one question record.
type Issue struct {
	Index      int               `json:"index"`
	QuestionID string            `json:"question_id"`
	Fields     map[string]string `json:"fields"`
}

// Inspect checks every question against the record rules and returns one
// Issue per malformed question, in bank order.
func Inspect(questions []model.Question) []Issue {
	var issues []Issue
	seen := make(map[string]int, len(questions))

	for i := range questions {
		q := &questions[i]
		fields := validator.Struct(q)
		if fields == nil {
			fields = map[string]string{}
		}

		if first, ok := seen[q.ID]; ok && q.ID != "" {
			fields["id"] = fmt.Sprintf("duplicates question %d", first+1)
		} else {
			seen[q.ID] = i
		}

		if q.Type.IsChoice() && len(q.Options) == 0 {
			fields["options"] = "options is required for choice questions"
		}
		switch q.Type {
		case model.QuestionTypeSingleChoice:
			if q.Correct.Index == nil || !q.HasOption(*q.Correct.Index) {
				fields["correct.index"] = "correct.index must point at an option"
			}
		case model.QuestionTypeMultiChoice:
			if len(q.Correct.Indices) == 0 {
				fields["correct.indices"] = "correct.indices must list at least one option"
			}
			for _, idx := range q.Correct.Indices {
				if !q.HasOption(idx) {
					fields["correct.indices"] = "option " + strconv.Itoa(idx) + " does not exist"
					break
				}
			}
		case model.QuestionTypeEssay:
			if q.MaxWords > 0 && q.MinWords > q.MaxWords {
				fields["min_words"] = "min_words must not exceed max_words"
			}
		}

		if len(fields) > 0 {
			issues = append(issues, Issue{Index: i, QuestionID: q.ID, Fields: fields})
		}
	}
	return issues
}

// Report logs every issue Inspect finds. The questions are left untouched.
func Report(log zerolog.Logger, questions []model.Question) []Issue {
	issues := Inspect(questions)
	for _, is := range issues {
		log.Warn().
			Int("index", is.Index).
			Str("question_id", is.QuestionID).
			Interface("fields", is.Fields).
			Msg("Malformed question kept in bank")
	}
	return issues
}
