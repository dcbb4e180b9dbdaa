package validator

import (
	"errors"
	"testing"

	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct(t *testing.T) {
	valid := model.Question{ID: "q1", Type: model.QuestionTypeEssay, Prompt: "why?", MaxScore: 5}
	assert.Nil(t, Struct(valid))

	fields := Struct(model.Question{Type: "DRAWING", MaxScore: -1})
	require.NotNil(t, fields)
	assert.Contains(t, fields, "id")
	assert.Contains(t, fields, "prompt")
	assert.Contains(t, fields, "type")
	assert.Contains(t, fields, "max_score")
	assert.Equal(t, "id is a required field", fields["id"])
}

func TestTranslateErrors_NotValidation(t *testing.T) {
	fields := TranslateErrors(errors.New("unexpected EOF"))
	assert.Equal(t, map[string]string{"detail": "unexpected EOF"}, fields)
}
