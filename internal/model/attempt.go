package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates persisted attempt states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
	AttemptStatusAbandoned  AttemptStatus = "ABANDONED"
)

// Attempt is the persisted trace of one learner session. Live state is never
// restored from it.
type Attempt struct {
	ID            uuid.UUID       `json:"id"`
	BankID        uuid.UUID       `json:"bank_id"`
	LearnerID     int             `json:"learner_id"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	Status        AttemptStatus   `json:"status"`
	Score         *float64        `json:"score,omitempty"`
	MaxScore      *float64        `json:"max_score,omitempty"`
	Percentage    *int            `json:"percentage,omitempty"`
	ReviewedScore *float64        `json:"reviewed_score,omitempty"`
	Record        json.RawMessage `json:"record,omitempty"`
}

// CreateSessionRequest is the payload for opening a live exam session.
type CreateSessionRequest struct {
	BankID string `json:"bank_id" binding:"required,uuid"`
}

// AttemptEvent is queued for the scoring worker whenever a live session
// starts, completes or is abandoned. Later events for the same attempt
// supersede earlier ones.
type AttemptEvent struct {
	AttemptID  uuid.UUID       `json:"attempt_id"`
	BankID     uuid.UUID       `json:"bank_id"`
	LearnerID  int             `json:"learner_id"`
	Status     AttemptStatus   `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Score      *float64        `json:"score,omitempty"`
	MaxScore   *float64        `json:"max_score,omitempty"`
	Percentage *int            `json:"percentage,omitempty"`
	Record     json.RawMessage `json:"record,omitempty"`
}
