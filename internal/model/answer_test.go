package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswer_FirstOptionSurvivesJSON(t *testing.T) {
	raw, err := json.Marshal(QuestionResult{QuestionID: "q1", Submitted: &Answer{Kind: AnswerKindIndex, Index: 0}})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"submitted":{"kind":"index","index":0}`)

	var back QuestionResult
	require.NoError(t, json.Unmarshal(raw, &back))
	require.NotNil(t, back.Submitted)
	assert.Equal(t, SingleChoice(0), *back.Submitted)
}
