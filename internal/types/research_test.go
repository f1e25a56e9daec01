package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawResearchData_Sources(t *testing.T) {
	raw := RawResearchData{
		CompanyInsights: json.RawMessage(`{"name":"Google"}`),
		JobRequirements: json.RawMessage(`null`),
	}
	assert.Equal(t, []string{SourceCompanyResearch}, raw.Sources())
	assert.Empty(t, RawResearchData{}.Sources())
}

func TestStringList_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want StringList
	}{
		{"single string", `"Go"`, StringList{"Go"}},
		{"array", `["Go", " ", "SQL"]`, StringList{"Go", "SQL"}},
		{"mixed", `["Go", {"name": "Kafka"}]`, StringList{"Go", `{"name":"Kafka"}`}},
		{"number", `42`, StringList{"42"}},
		{"null", `null`, nil},
		{"empty string", `""`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got StringList
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCVProfile(t *testing.T) {
	raw := json.RawMessage(`{
		"summary": "Backend engineer",
		"skills": {"technical": ["Go", "Postgres"], "soft": "mentoring"},
		"experience": [
			{"title": "Senior Engineer", "company": "Acme", "achievements": ["cut latency 40%"]}
		]
	}`)

	cv, ok := DecodeCVProfile(raw)
	require.True(t, ok)
	assert.Equal(t, StringList{"Go", "Postgres"}, cv.Skills.Technical)
	assert.Equal(t, StringList{"mentoring"}, cv.Skills.Soft)
	require.Len(t, cv.WorkHistory, 1)
	assert.Equal(t, "Senior Engineer", cv.WorkHistory[0].Position())
}

func TestDecodeView_PartialOnTypeMismatch(t *testing.T) {
	job, ok := DecodeJobRequirements(json.RawMessage(`{"title": {"x": 1}, "technical_skills": ["Go"]}`))
	assert.True(t, ok)
	assert.Equal(t, StringList{"Go"}, job.TechnicalSkills)
}

func TestDecodeView_Absent(t *testing.T) {
	_, ok := DecodeCompanyInsights(nil)
	assert.False(t, ok)
	_, ok = DecodeCompanyInsights(json.RawMessage(`not json`))
	assert.False(t, ok)
}

func TestJobRequirements_RequirementStrings(t *testing.T) {
	job := JobRequirements{
		TechnicalSkills:  StringList{"Go"},
		Responsibilities: StringList{"own services"},
		Qualifications:   Qualifications{Required: StringList{"5 years"}},
	}
	assert.Equal(t, []string{"Go", "own services", "5 years"}, job.RequirementStrings())
}
