package db

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-prep/internal/types"
)

func TestJSONOrNull(t *testing.T) {
	assert.Nil(t, jsonOrNull(nil))
	assert.Nil(t, jsonOrNull(json.RawMessage("null")))
	assert.Nil(t, jsonOrNull(json.RawMessage("  ")))
	assert.Equal(t, []byte(`{"a":1}`), jsonOrNull(json.RawMessage(`{"a":1}`)))
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	require.NotNil(t, nullIfEmpty("x"))
	assert.Equal(t, "x", *nullIfEmpty("x"))
}

func TestMarshalSynthesis_EmptyDefaultIsValidJSON(t *testing.T) {
	cols, err := marshalSynthesis(types.NewSynthesisResult())
	require.NoError(t, err)

	assert.JSONEq(t, `[]`, string(cols.stages))
	assert.JSONEq(t, `{}`, string(cols.questions))
	assert.Contains(t, string(cols.comparison), `"overall_fit_score":0`)
	assert.Contains(t, string(cols.guidance), `"priorities":[]`)
	assert.Contains(t, string(cols.metadata), `"refinement_iterations":0`)
}

func TestSchemaCoversEveryTable(t *testing.T) {
	for _, table := range []string{"searches", "research_artifacts", "interview_stages", "interview_questions", "resumes"} {
		assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Regexp(t, `search_id\s+TEXT NOT NULL UNIQUE,`, schemaSQL)
}

func TestDefaultConnectOptions(t *testing.T) {
	opts := DefaultConnectOptions()
	assert.Positive(t, opts.MaxElapsed)
	assert.Less(t, opts.InitialInterval, opts.MaxElapsed)
}
