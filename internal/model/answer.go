package model

import (
	"slices"
	"strings"
)

// AnswerKind tags the shape of a submitted answer.
type AnswerKind string

const (
	AnswerKindIndex   AnswerKind = "index"
	AnswerKindIndices AnswerKind = "indices"
	AnswerKindText    AnswerKind = "text"
)

// Answer is a submitted answer. Its shape depends on the question type:
// an option index, a set of option indices, or free text.
type Answer struct {
	Kind    AnswerKind `json:"kind"`
	Index   int        `json:"index"`
	Indices []int      `json:"indices,omitempty"`
	Text    string     `json:"text,omitempty"`
}

// SingleChoice builds a single-choice answer.
func SingleChoice(i int) Answer {
	return Answer{Kind: AnswerKindIndex, Index: i}
}

// MultiChoice builds a multi-choice answer. Indices are deduplicated and sorted.
func MultiChoice(indices ...int) Answer {
	set := slices.Clone(indices)
	slices.Sort(set)
	return Answer{Kind: AnswerKindIndices, Indices: slices.Compact(set)}
}

// EssayText builds a free-text answer. The text is kept verbatim.
func EssayText(s string) Answer {
	return Answer{Kind: AnswerKindText, Text: s}
}

// IsEmpty reports whether the answer carries nothing worth counting as answered.
func (a Answer) IsEmpty() bool {
	switch a.Kind {
	case AnswerKindIndex:
		return false
	case AnswerKindIndices:
		return len(a.Indices) == 0
	case AnswerKindText:
		return strings.TrimSpace(a.Text) == ""
	}
	return true
}

// Matches reports whether the answer shape fits the question type.
func (a Answer) Matches(t QuestionType) bool {
	switch t {
	case QuestionTypeSingleChoice:
		return a.Kind == AnswerKindIndex
	case QuestionTypeMultiChoice:
		return a.Kind == AnswerKindIndices
	case QuestionTypeEssay:
		return a.Kind == AnswerKindText
	}
	return false
}

// Clone returns a deep copy of the answer.
func (a Answer) Clone() Answer {
	a.Indices = slices.Clone(a.Indices)
	return a
}
