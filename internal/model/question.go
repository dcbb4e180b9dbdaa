package model

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultiChoice  QuestionType = "MULTI_CHOICE"
	QuestionTypeEssay        QuestionType = "ESSAY"
)

// Supported reports whether the engine knows how to render and grade the type.
func (t QuestionType) Supported() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultiChoice, QuestionTypeEssay:
		return true
	}
	return false
}

// IsChoice reports whether the type is answered by picking options.
func (t QuestionType) IsChoice() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeMultiChoice
}

// Image is an optional illustration attached to a question.
type Image struct {
	URL     string `json:"url" validate:"required"`
	Caption string `json:"caption,omitempty"`
}

// CorrectAnswer holds the answer key of a question. Only the field matching
// the question type is meaningful.
type CorrectAnswer struct {
	Index     *int   `json:"index,omitempty"`
	Indices   []int  `json:"indices,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Question is a single immutable question record of a bank.
type Question struct {
	ID            string        `json:"id" validate:"required"`
	Type          QuestionType  `json:"type" validate:"required,oneof=SINGLE_CHOICE MULTI_CHOICE ESSAY"`
	Prompt        string        `json:"prompt" validate:"required"`
	Options       []string      `json:"options,omitempty" validate:"omitempty,dive,required"`
	Correct       CorrectAnswer `json:"correct"`
	MaxScore      float64       `json:"max_score" validate:"gte=0"`
	Image         *Image        `json:"image,omitempty" validate:"omitempty"`
	TimeAllowance int           `json:"time_allowance,omitempty" validate:"gte=0"`
	Tags          []string      `json:"tags,omitempty"`
	MinWords      int           `json:"min_words,omitempty" validate:"gte=0"`
	MaxWords      int           `json:"max_words,omitempty" validate:"gte=0"`
	OrderNum      int           `json:"order_num"`
}

// Supported reports whether the engine can render and grade the question:
// a known type, and at least one option for choice types.
func (q *Question) Supported() bool {
	if !q.Type.Supported() {
		return false
	}
	return !q.Type.IsChoice() || len(q.Options) > 0
}

// HasOption reports whether i is a valid option index for the question.
func (q *Question) HasOption(i int) bool {
	return i >= 0 && i < len(q.Options)
}

// AddQuestionRequest is the payload for a single question when replacing a bank's questions.
type AddQuestionRequest struct {
	ID            string        `json:"id" binding:"required,max=64"`
	Type          string        `json:"type" binding:"required,oneof=SINGLE_CHOICE MULTI_CHOICE ESSAY"`
	Prompt        string        `json:"prompt" binding:"required,min=1,max=4000"`
	Options       []string      `json:"options" binding:"omitempty,dive,max=1000"`
	Correct       CorrectAnswer `json:"correct"`
	MaxScore      float64       `json:"max_score" binding:"gte=0"`
	Image         *Image        `json:"image" binding:"omitempty"`
	TimeAllowance int           `json:"time_allowance" binding:"gte=0,lte=86400"`
	Tags          []string      `json:"tags" binding:"omitempty,dive,max=64"`
	MinWords      int           `json:"min_words" binding:"gte=0"`
	MaxWords      int           `json:"max_words" binding:"gte=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a bank's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}

// ToQuestion converts the request into a question positioned at order.
func (r *AddQuestionRequest) ToQuestion(order int) Question {
	return Question{
		ID:            r.ID,
		Type:          QuestionType(r.Type),
		Prompt:        r.Prompt,
		Options:       r.Options,
		Correct:       r.Correct,
		MaxScore:      r.MaxScore,
		Image:         r.Image,
		TimeAllowance: r.TimeAllowance,
		Tags:          r.Tags,
		MinWords:      r.MinWords,
		MaxWords:      r.MaxWords,
		OrderNum:      order,
	}
}
