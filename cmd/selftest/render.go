package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/stemsi/exstem-selftest/internal/engine"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/view"
)

var questionTypes = []model.QuestionType{
	model.QuestionTypeSingleChoice,
	model.QuestionTypeMultiChoice,
	model.QuestionTypeEssay,
}

func writeScreen(w io.Writer, s view.Screen) {
	switch {
	case s.Instructions != nil:
		writeInstructions(w, s.Instructions)
	case s.Exam != nil:
		writeExam(w, s.Exam)
	case s.Results != nil:
		writeResults(w, s.Results)
	}
}

func writeInstructions(w io.Writer, in *view.Instructions) {
	fmt.Fprintln(w, "── Instructions ──")
	fmt.Fprintf(w, "%d questions, %g points, %s\n", in.QuestionCount, in.TotalPoints, in.Duration)
	for _, t := range questionTypes {
		if n := in.ByType[t]; n > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", t, n)
		}
	}
	fmt.Fprintln(w, "Type \"start\" to begin.")
}

func writeExam(w io.Writer, ex *view.Exam) {
	p := ex.TopBar.Progress
	fmt.Fprintf(w, "── %s │ answered %d/%d │ marked %d ──\n", ex.TopBar.Clock, p.Answered, p.Total, p.Marked)
	if ex.Empty {
		fmt.Fprintln(w, "This bank has no questions. Submit to finish.")
		return
	}

	fmt.Fprintln(w, navigatorLine(ex.Navigator))

	c := ex.Card
	if c == nil {
		return
	}
	mark := ""
	if c.Marked {
		mark = " [marked]"
	}
	fmt.Fprintf(w, "\nQ%d (%g pts)%s\n%s\n", c.Number, c.MaxScore, mark, c.Prompt)
	if c.Image != nil {
		fmt.Fprintf(w, "[image: %s]\n", c.Image.URL)
	}

	switch c.Input {
	case view.InputRadio, view.InputCheckbox:
		for i, opt := range c.Options {
			fmt.Fprintf(w, "  %s %d. %s\n", optionBox(c, i), i+1, opt)
		}
	case view.InputTextarea:
		text := ""
		if c.Answer != nil {
			text = c.Answer.Text
		}
		fmt.Fprintf(w, "  > %s\n  (%d words", text, c.WordCount)
		if c.MinWords > 0 || c.MaxWords > 0 {
			fmt.Fprintf(w, ", expected %d-%d", c.MinWords, c.MaxWords)
		}
		fmt.Fprintln(w, ")")
	default:
		fmt.Fprintf(w, "  (%s)\n", c.Placeholder)
	}
}

func optionBox(c *view.Card, i int) string {
	selected := false
	if c.Answer != nil {
		if c.Input == view.InputRadio {
			selected = c.Answer.Index == i
		}
		for _, idx := range c.Answer.Indices {
			selected = selected || idx == i
		}
	}
	switch {
	case c.Input == view.InputRadio && selected:
		return "(•)"
	case c.Input == view.InputRadio:
		return "( )"
	case selected:
		return "[x]"
	}
	return "[ ]"
}

func navigatorLine(items []view.NavItem) string {
	var b strings.Builder
	for _, it := range items {
		sym := "·"
		switch it.Status {
		case engine.StatusCurrent:
			sym = "▶"
		case engine.StatusMarked:
			sym = "?"
		case engine.StatusAnswered:
			sym = "✓"
		}
		fmt.Fprintf(&b, "%d%s ", it.Index+1, sym)
	}
	return strings.TrimSpace(b.String())
}

func writeResults(w io.Writer, r *view.Results) {
	fmt.Fprintln(w, "── Results ──")
	if r.Record != nil {
		fmt.Fprintf(w, "Score: %g / %g (%d%%)\n", r.Record.TotalScore, r.Record.MaxScore, r.Record.Percentage)
	}
	fmt.Fprintf(w, "Correct %d │ Incorrect %d │ Pending review %d │ Unanswered %d\n",
		r.Correct, r.Incorrect, r.PendingReview, r.Unanswered)
	fmt.Fprintln(w, "Type \"r\" to try again or \"q\" to quit.")
}
