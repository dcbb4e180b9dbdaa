package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stemsi/exstem-selftest/internal/engine"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/view"
)

var (
	errUnknownIntent = errors.New("unknown intent")
	errInvalidValue  = errors.New("value must be an option index, an array of option indices or a string")
)

// decodeIntent maps a wire intent to an engine intent. Key presses that have
// no binding, or are suppressed by a focused input, decode to nil, which the
// session treats as a snapshot request.
func decodeIntent(req *model.IntentRequest) (engine.Intent, error) {
	switch req.Intent {
	case "start":
		return engine.Start{}, nil
	case "answer":
		value, err := decodeAnswer(req.Value)
		if err != nil {
			return nil, err
		}
		return engine.Answer{QuestionID: req.QuestionID, Value: value}, nil
	case "toggle_review":
		return engine.ToggleReview{QuestionID: req.QuestionID}, nil
	case "goto":
		if req.Index == nil {
			return nil, fmt.Errorf("goto: index is required")
		}
		return engine.Goto{Index: *req.Index}, nil
	case "next":
		return engine.Next{}, nil
	case "previous":
		return engine.Previous{}, nil
	case "submit":
		return engine.Submit{}, nil
	case "reset":
		return engine.Reset{}, nil
	case "key":
		if in, ok := view.KeyIntent(req.Key, req.InputFocused); ok {
			return in, nil
		}
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownIntent, req.Intent)
}

// decodeAnswer infers the answer shape from the JSON value.
func decodeAnswer(raw json.RawMessage) (model.Answer, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return model.Answer{}, errInvalidValue
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return model.Answer{}, errInvalidValue
		}
		return model.EssayText(s), nil
	case '[':
		var indices []int
		if err := json.Unmarshal(raw, &indices); err != nil {
			return model.Answer{}, errInvalidValue
		}
		return model.MultiChoice(indices...), nil
	default:
		var i int
		if err := json.Unmarshal(raw, &i); err != nil {
			return model.Answer{}, errInvalidValue
		}
		return model.SingleChoice(i), nil
	}
}
