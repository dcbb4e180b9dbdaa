package websocket

import "github.com/stemsi/exstem-selftest/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionIntent Action = "intent"
	ActionPing   Action = "ping"
)

// RequestPayload is a client message. Intent fields are only read for
// ActionIntent.
type RequestPayload struct {
	Action Action `json:"action"`
	model.IntentRequest
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState Event = "state"
	EventError Event = "error"
	EventPong  Event = "pong"
)

// StateResponse carries the rendered screen after every transition,
// timer ticks included.
type StateResponse struct {
	Event  Event       `json:"event"`
	Screen interface{} `json:"screen"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
