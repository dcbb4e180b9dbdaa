package engine

// QuestionStatus is the navigator status of a question, derived from state.
type QuestionStatus string

const (
	StatusCurrent    QuestionStatus = "current"
	StatusMarked     QuestionStatus = "marked"
	StatusAnswered   QuestionStatus = "answered"
	StatusUnanswered QuestionStatus = "unanswered"
)

// StatusOf derives the status of the question at index i. Precedence is
// current, then marked, then answered. Indices outside the bank are
// unanswered.
func StatusOf(s State, i int) QuestionStatus {
	if i < 0 || i >= len(s.Questions) {
		return StatusUnanswered
	}
	if i == s.Position {
		return StatusCurrent
	}
	id := s.Questions[i].ID
	if s.IsMarked(id) {
		return StatusMarked
	}
	if Answered(s, id) {
		return StatusAnswered
	}
	return StatusUnanswered
}

// Statuses derives the status of every question in order.
func Statuses(s State) []QuestionStatus {
	out := make([]QuestionStatus, len(s.Questions))
	for i := range s.Questions {
		out[i] = StatusOf(s, i)
	}
	return out
}

// Answered reports whether the question has a non-empty answer.
func Answered(s State, questionID string) bool {
	a, ok := s.Answers[questionID]
	return ok && !a.IsEmpty()
}

// Counts summarises progress through the question sequence.
type Counts struct {
	Total      int `json:"total"`
	Answered   int `json:"answered"`
	Marked     int `json:"marked"`
	Unanswered int `json:"unanswered"`
}

// Progress counts answered, marked and unanswered questions. Marking is
// independent of answering, so a question may count in both.
func Progress(s State) Counts {
	c := Counts{Total: len(s.Questions)}
	for _, q := range s.Questions {
		if Answered(s, q.ID) {
			c.Answered++
		} else {
			c.Unanswered++
		}
		if s.IsMarked(q.ID) {
			c.Marked++
		}
	}
	return c
}
