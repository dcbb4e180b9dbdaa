package model

// QuestionResult is the per-question entry of a grading record.
type QuestionResult struct {
	QuestionID    string        `json:"question_id"`
	IsCorrect     bool          `json:"is_correct"`
	Score         float64       `json:"score"`
	MaxScore      float64       `json:"max_score"`
	Submitted     *Answer       `json:"submitted"`
	Correct       CorrectAnswer `json:"correct"`
	PendingReview bool          `json:"pending_review,omitempty"`
}

// GradingRecord is the immutable outcome of scoring a session.
type GradingRecord struct {
	TotalScore float64          `json:"total_score"`
	MaxScore   float64          `json:"max_score"`
	Percentage int              `json:"percentage"`
	Breakdown  []QuestionResult `json:"breakdown"`
}

// Clone returns a deep copy of the record.
func (r *GradingRecord) Clone() *GradingRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Breakdown = make([]QuestionResult, len(r.Breakdown))
	for i, qr := range r.Breakdown {
		if qr.Submitted != nil {
			a := qr.Submitted.Clone()
			qr.Submitted = &a
		}
		out.Breakdown[i] = qr
	}
	return &out
}
