package engine

import (
	"testing"

	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestStatuses_Precedence(t *testing.T) {
	qs := append(sampleQuestions(), singleQ("4", 0, 1))
	s := started(t, qs)

	s = Reduce(s, Answer{QuestionID: "2", Value: model.MultiChoice(1)})
	s = Reduce(s, Answer{QuestionID: "3", Value: model.EssayText("text")})
	s = Reduce(s, ToggleReview{QuestionID: "3"})
	s = Reduce(s, ToggleReview{QuestionID: "1"})

	assert.Equal(t, []QuestionStatus{StatusCurrent, StatusAnswered, StatusMarked, StatusUnanswered}, Statuses(s))

	s = Reduce(s, Goto{Index: 3})
	assert.Equal(t, []QuestionStatus{StatusMarked, StatusAnswered, StatusMarked, StatusCurrent}, Statuses(s))
}

func TestStatuses_EmptyAnswersCountAsUnanswered(t *testing.T) {
	s := started(t, sampleQuestions())
	s = Reduce(s, Goto{Index: 2})
	s = Reduce(s, Answer{QuestionID: "2", Value: model.MultiChoice()})
	s = Reduce(s, Answer{QuestionID: "3", Value: model.EssayText("   ")})

	assert.Equal(t, StatusUnanswered, StatusOf(s, 1))
	assert.False(t, Answered(s, "3"))
}

func TestStatusOf_OutsideBank(t *testing.T) {
	empty := started(t, nil)
	assert.Equal(t, 0, empty.Position)
	assert.Equal(t, StatusUnanswered, StatusOf(empty, 0))
	assert.Empty(t, Statuses(empty))

	s := started(t, sampleQuestions())
	assert.Equal(t, StatusCurrent, StatusOf(s, 0))
	assert.Equal(t, StatusUnanswered, StatusOf(s, -1))
	assert.Equal(t, StatusUnanswered, StatusOf(s, 3))
}

func TestProgress(t *testing.T) {
	s := started(t, sampleQuestions())
	s = Reduce(s, Answer{QuestionID: "1", Value: model.SingleChoice(0)})
	s = Reduce(s, ToggleReview{QuestionID: "1"})
	s = Reduce(s, ToggleReview{QuestionID: "3"})

	assert.Equal(t, Counts{Total: 3, Answered: 1, Marked: 2, Unanswered: 2}, Progress(s))
	assert.Equal(t, []string{"1", "3"}, s.MarkedIDs())
}
