package model

import (
	"time"

	"github.com/google/uuid"
)

// EssayReview is an essay answer awaiting (or holding) a manual grade.
type EssayReview struct {
	ID         int64      `json:"id"`
	AttemptID  uuid.UUID  `json:"attempt_id"`
	QuestionID string     `json:"question_id"`
	Answer     string     `json:"answer"`
	Reference  string     `json:"reference,omitempty"`
	MaxScore   float64    `json:"max_score"`
	Score      *float64   `json:"score,omitempty"`
	ReviewerID *int       `json:"reviewer_id,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// GradeReviewRequest is the payload for awarding a manual essay score.
type GradeReviewRequest struct {
	Score *float64 `json:"score" binding:"required,gte=0"`
}

// ReviewTask is queued for the review worker for every answered essay of a
// completed attempt.
type ReviewTask struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	QuestionID string    `json:"question_id"`
	Answer     string    `json:"answer"`
	Reference  string    `json:"reference,omitempty"`
	MaxScore   float64   `json:"max_score"`
}
