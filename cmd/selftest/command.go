package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stemsi/exstem-selftest/internal/engine"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/view"
)

var errQuit = errors.New("quit")

const helpText = `Commands:
  start               begin the exam
  n | right | down    next question
  p | left  | up      previous question
  g <number>          go to question
  a <option>          answer a single choice question (options are numbered from 1)
  a <o1,o2,...>       answer a multi choice question
  e <text>            answer an essay question
  m                   mark or unmark the question for review
  s                   submit
  r                   reset and return to the instructions
  ?                   show this help
  q                   quit`

// parseCommand turns one input line into an intent for the current state. A
// nil intent with a nil error means the line only asked for a redraw.
func parseCommand(line string, st engine.State) (engine.Intent, error) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
		return nil, nil
	case "q", "quit", "exit":
		return nil, errQuit
	case "start":
		return engine.Start{}, nil
	case "n", "next":
		return engine.Next{}, nil
	case "p", "prev", "previous":
		return engine.Previous{}, nil
	case "left":
		return key(view.KeyArrowLeft), nil
	case "up":
		return key(view.KeyArrowUp), nil
	case "right":
		return key(view.KeyArrowRight), nil
	case "down":
		return key(view.KeyArrowDown), nil
	case "g", "goto":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("goto needs a question number")
		}
		return engine.Goto{Index: n - 1}, nil
	case "s", "submit":
		return engine.Submit{}, nil
	case "r", "reset":
		return engine.Reset{}, nil
	case "m", "mark":
		q, ok := st.Current()
		if !ok {
			return nil, fmt.Errorf("no current question")
		}
		return engine.ToggleReview{QuestionID: q.ID}, nil
	case "a", "answer":
		q, ok := st.Current()
		if !ok {
			return nil, fmt.Errorf("no current question")
		}
		answer, err := parseChoice(q.Type, arg)
		if err != nil {
			return nil, err
		}
		return engine.Answer{QuestionID: q.ID, Value: answer}, nil
	case "e", "essay":
		q, ok := st.Current()
		if !ok {
			return nil, fmt.Errorf("no current question")
		}
		return engine.Answer{QuestionID: q.ID, Value: model.EssayText(arg)}, nil
	case "?", "h", "help":
		return nil, errHelp
	}
	return nil, fmt.Errorf("unknown command %q, type ? for help", cmd)
}

var errHelp = errors.New("help")

// key maps an arrow key the way the browser front end does. The terminal
// never has a focused text input.
func key(name string) engine.Intent {
	in, _ := view.KeyIntent(name, false)
	return in
}

func parseChoice(t model.QuestionType, arg string) (model.Answer, error) {
	var indices []int
	for _, part := range strings.Split(arg, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return model.Answer{}, fmt.Errorf("option %q is not a number", part)
		}
		indices = append(indices, n-1)
	}

	if t == model.QuestionTypeMultiChoice {
		return model.MultiChoice(indices...), nil
	}
	if len(indices) != 1 {
		return model.Answer{}, fmt.Errorf("pick exactly one option")
	}
	return model.SingleChoice(indices[0]), nil
}
