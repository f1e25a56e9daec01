package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Source names for the three analyzers.
const (
	SourceCompanyResearch = "company_research"
	SourceJobAnalysis     = "job_analysis"
	SourceCVAnalysis      = "cv_analysis"
)

// RawResearchData holds the three analyzer payloads. A nil payload means the
// source failed, timed out or was never called.
type RawResearchData struct {
	CompanyInsights json.RawMessage `json:"company_insights,omitempty"`
	JobRequirements json.RawMessage `json:"job_requirements,omitempty"`
	CVAnalysis      json.RawMessage `json:"cv_analysis,omitempty"`
}

// Sources lists the names of the payloads that are present, in fixed order.
func (r RawResearchData) Sources() []string {
	sources := []string{}
	if HasPayload(r.CompanyInsights) {
		sources = append(sources, SourceCompanyResearch)
	}
	if HasPayload(r.JobRequirements) {
		sources = append(sources, SourceJobAnalysis)
	}
	if HasPayload(r.CVAnalysis) {
		sources = append(sources, SourceCVAnalysis)
	}
	return sources
}

// HasPayload reports whether raw holds a non-null JSON value.
func HasPayload(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// StringList decodes from a JSON string, an array of strings, or an array of
// mixed values (objects are kept as compact JSON text).
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if s := strings.TrimSpace(single); s != "" {
			*l = StringList{s}
		} else {
			*l = nil
		}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		// Scalars and objects degrade to their text form.
		*l = StringList{string(data)}
		return nil
	}

	out := make(StringList, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, item); err == nil && buf.Len() > 0 {
			out = append(out, buf.String())
		}
	}
	*l = out
	return nil
}

// ProcessStage is a stage described by company research.
type ProcessStage struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Duration    string     `json:"duration"`
	Tips        StringList `json:"tips"`
}

// InterviewExperiences summarizes what candidates reported.
type InterviewExperiences struct {
	Summary        string     `json:"summary"`
	Difficulty     string     `json:"difficulty"`
	PositiveThemes StringList `json:"positive_themes"`
	NegativeThemes StringList `json:"negative_themes"`
}

// CompanyInsights is the typed view of the company research payload.
type CompanyInsights struct {
	Name                  string                `json:"name"`
	Industry              string                `json:"industry"`
	Description           string                `json:"description"`
	Culture               StringList            `json:"culture"`
	Values                StringList            `json:"values"`
	InterviewProcess      []ProcessStage        `json:"interview_process"`
	InterviewExperiences  InterviewExperiences  `json:"interview_experiences"`
	HiringManagerInsights StringList            `json:"hiring_manager_insights"`
	InterviewQuestions    map[string]StringList `json:"interview_questions_bank"`
}

// Qualifications splits required and preferred qualifications.
type Qualifications struct {
	Required  StringList `json:"required"`
	Preferred StringList `json:"preferred"`
}

// JobRequirements is the typed view of the job analysis payload.
type JobRequirements struct {
	Title            string         `json:"title"`
	ExperienceLevel  string         `json:"experience_level"`
	TechnicalSkills  StringList     `json:"technical_skills"`
	SoftSkills       StringList     `json:"soft_skills"`
	Responsibilities StringList     `json:"responsibilities"`
	Qualifications   Qualifications `json:"qualifications"`
}

// RequirementStrings returns every requirement string in a stable order.
func (j JobRequirements) RequirementStrings() []string {
	var out []string
	out = append(out, j.TechnicalSkills...)
	out = append(out, j.SoftSkills...)
	out = append(out, j.Responsibilities...)
	out = append(out, j.Qualifications.Required...)
	out = append(out, j.Qualifications.Preferred...)
	return out
}

// WorkEntry is one position in the candidate's work history.
type WorkEntry struct {
	Role         string     `json:"role"`
	Title        string     `json:"title"`
	Company      string     `json:"company"`
	Duration     string     `json:"duration"`
	Description  string     `json:"description"`
	Achievements StringList `json:"achievements"`
}

// Position returns Role, or Title when Role is empty.
func (w WorkEntry) Position() string {
	if w.Role != "" {
		return w.Role
	}
	return w.Title
}

// CVSkills groups the candidate's skills.
type CVSkills struct {
	Technical StringList `json:"technical"`
	Soft      StringList `json:"soft"`
}

// CVProfile is the typed view of the CV analysis payload.
type CVProfile struct {
	Summary         string      `json:"summary"`
	CurrentRole     string      `json:"current_role"`
	ExperienceYears float64     `json:"experience_years"`
	Skills          CVSkills    `json:"skills"`
	WorkHistory     []WorkEntry `json:"experience"`
	Projects        StringList  `json:"projects"`
	Achievements    StringList  `json:"achievements"`
	Education       StringList  `json:"education"`
}

// DecodeCompanyInsights decodes raw into the typed view. ok is false when raw is
// absent or not a JSON object; mistyped fields are skipped.
func DecodeCompanyInsights(raw json.RawMessage) (CompanyInsights, bool) {
	var v CompanyInsights
	ok := decodeView(raw, &v)
	return v, ok
}

// DecodeJobRequirements decodes raw into the typed view.
func DecodeJobRequirements(raw json.RawMessage) (JobRequirements, bool) {
	var v JobRequirements
	ok := decodeView(raw, &v)
	return v, ok
}

// DecodeCVProfile decodes raw into the typed view.
func DecodeCVProfile(raw json.RawMessage) (CVProfile, bool) {
	var v CVProfile
	ok := decodeView(raw, &v)
	return v, ok
}

func decodeView(raw json.RawMessage, dst any) bool {
	if !HasPayload(raw) || bytes.TrimSpace(raw)[0] != '{' {
		return false
	}
	err := json.Unmarshal(raw, dst)
	if err == nil {
		return true
	}
	// A mistyped field still leaves the rest of the view populated.
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &typeErr)
}
