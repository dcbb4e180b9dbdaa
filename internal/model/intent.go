package model

import "encoding/json"

// IntentRequest is the wire form of a learner intent, shared by the REST and
// WebSocket transports.
//
// value is an option index for single choice, an index array for multi
// choice, or a string for essays. key/input_focused carry a raw key press
// that is mapped to a navigation intent.
type IntentRequest struct {
	Intent       string          `json:"intent" binding:"required,oneof=start answer toggle_review goto next previous submit reset key"`
	QuestionID   string          `json:"question_id" binding:"required_if=Intent answer,required_if=Intent toggle_review"`
	Index        *int            `json:"index" binding:"required_if=Intent goto"`
	Value        json.RawMessage `json:"value"`
	Key          string          `json:"key" binding:"required_if=Intent key"`
	InputFocused bool            `json:"input_focused"`
}
