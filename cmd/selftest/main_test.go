package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/bank"
	"github.com/stemsi/exstem-selftest/internal/engine"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func testQuestions() []model.Question {
	return []model.Question{
		{ID: "q1", Type: model.QuestionTypeSingleChoice, Prompt: "2+2?", Options: []string{"3", "4"}, Correct: model.CorrectAnswer{Index: intPtr(1)}, MaxScore: 10},
		{ID: "q2", Type: model.QuestionTypeMultiChoice, Prompt: "primes", Options: []string{"2", "4", "5"}, Correct: model.CorrectAnswer{Indices: []int{0, 2}}, MaxScore: 10},
		{ID: "q3", Type: model.QuestionTypeEssay, Prompt: "explain", MaxScore: 10},
	}
}

func inProgress(position int) engine.State {
	s := engine.Reduce(engine.NewState(), engine.Load{Questions: testQuestions()})
	s = engine.Reduce(s, engine.Start{})
	return engine.Reduce(s, engine.Goto{Index: position})
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line     string
		position int
		want     engine.Intent
	}{
		{line: "start", want: engine.Start{}},
		{line: "n", want: engine.Next{}},
		{line: "prev", want: engine.Previous{}},
		{line: "right", want: engine.Next{}},
		{line: "up", want: engine.Previous{}},
		{line: "g 3", want: engine.Goto{Index: 2}},
		{line: "s", want: engine.Submit{}},
		{line: "r", want: engine.Reset{}},
		{line: "m", want: engine.ToggleReview{QuestionID: "q1"}},
		{line: "a 2", want: engine.Answer{QuestionID: "q1", Value: model.SingleChoice(1)}},
		{line: "a 3, 1", position: 1, want: engine.Answer{QuestionID: "q2", Value: model.MultiChoice(0, 2)}},
		{line: "e  two words ", position: 2, want: engine.Answer{QuestionID: "q3", Value: model.EssayText("two words")}},
		{line: "   "},
	}
	for _, tc := range tests {
		got, err := parseCommand(tc.line, inProgress(tc.position))
		require.NoError(t, err, tc.line)
		assert.Equal(t, tc.want, got, tc.line)
	}
}

func TestParseCommand_Errors(t *testing.T) {
	st := inProgress(0)

	_, err := parseCommand("q", st)
	assert.ErrorIs(t, err, errQuit)

	_, err = parseCommand("?", st)
	assert.ErrorIs(t, err, errHelp)

	for _, line := range []string{"g", "g x", "a", "a 1,2", "a x", "dance"} {
		_, err := parseCommand(line, st)
		assert.Error(t, err, line)
	}

	_, err = parseCommand("m", engine.NewState())
	assert.Error(t, err)
}

func TestWriteScreen(t *testing.T) {
	st := inProgress(0)
	st = engine.Reduce(st, engine.Answer{QuestionID: "q1", Value: model.SingleChoice(1)})
	st = engine.Reduce(st, engine.ToggleReview{QuestionID: "q1"})

	var buf bytes.Buffer
	writeScreen(&buf, view.Render(st))
	out := buf.String()

	assert.Contains(t, out, "answered 1/3")
	assert.Contains(t, out, "Q1 (10 pts) [marked]")
	assert.Contains(t, out, "(•) 2. 4")
	assert.Contains(t, out, "( ) 1. 3")
	assert.Contains(t, out, "1▶ 2· 3·")
}

func TestWriteScreen_Results(t *testing.T) {
	st := inProgress(0)
	st = engine.Reduce(st, engine.Answer{QuestionID: "q1", Value: model.SingleChoice(1)})
	st = engine.Reduce(st, engine.Submit{})

	var buf bytes.Buffer
	writeScreen(&buf, view.Render(st))

	assert.Contains(t, buf.String(), "Score: 10 / 30 (33%)")
	assert.Contains(t, buf.String(), "Correct 1 │ Incorrect 0 │ Pending review 0 │ Unanswered 2")
}

func TestRun(t *testing.T) {
	script := strings.Join([]string{
		"start",
		"a 2",
		"n",
		"a 1,3",
		"g 3",
		"e because it is",
		"bogus",
		"s",
		"q",
	}, "\n")

	var out bytes.Buffer
	err := run(context.Background(), bank.Static(testQuestions()), 600, strings.NewReader(script), &out, zerolog.Nop())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "── Instructions ──")
	assert.Contains(t, text, "3 questions, 30 points")
	assert.Contains(t, text, "(3 words)")
	assert.Contains(t, text, `unknown command "bogus"`)
	assert.Contains(t, text, "Score: 20 / 30 (67%)")
}
