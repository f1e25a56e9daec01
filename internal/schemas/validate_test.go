package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJSONString_Valid(t *testing.T) {
	doc := `{
		"interview_stages": [{"name": "Phone screen", "order_index": 1}],
		"interview_questions": {"behavioral": [{"question": "Tell me about a conflict", "confidence": 0.7}]}
	}`
	assert.NoError(t, ValidateJSONString(Synthesis, doc))
}

func TestValidateJSONString_Violations(t *testing.T) {
	doc := `{"interview_stages": [{"order_index": 1}], "interview_questions": {"technical": [{"difficulty": "hard"}]}}`

	err := ValidateJSONString(Synthesis, doc)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors, 2)
	assert.Len(t, ve.Messages(), 2)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidateJSONString_Refinement(t *testing.T) {
	assert.NoError(t, ValidateJSONString(Refinement, `{"questions": [{"question": "Why us?"}]}`))

	var ve *ValidationError
	assert.True(t, errors.As(ValidateJSONString(Refinement, `{"items": []}`), &ve))
}

func TestValidateJSONString_UnknownSchema(t *testing.T) {
	var le *SchemaLoadError
	require.True(t, errors.As(ValidateJSONString("nope", `{}`), &le))
	assert.Equal(t, "nope", le.Name)
}

func TestValidateJSONString_MalformedDocument(t *testing.T) {
	var le *SchemaLoadError
	assert.True(t, errors.As(ValidateJSONString(Synthesis, `{not json`), &le))
}
