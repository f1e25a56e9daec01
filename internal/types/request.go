package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Seniority is the candidate's target level.
type Seniority string

// Seniority values
const (
	SeniorityJunior Seniority = "junior"
	SeniorityMid    Seniority = "mid"
	SenioritySenior Seniority = "senior"
)

// ResearchRequest is the immutable input of one research run.
type ResearchRequest struct {
	SearchID  string    `json:"search_id,omitempty" validate:"omitempty,max=64"`
	UserID    string    `json:"user_id,omitempty"`
	Company   string    `json:"company" validate:"required,max=200"`
	Role      string    `json:"role,omitempty" validate:"max=200"`
	Country   string    `json:"country,omitempty" validate:"max=100"`
	CVText    string    `json:"cv_text,omitempty"`
	CVID      string    `json:"cv_id,omitempty" validate:"omitempty,uuid"`
	Seniority Seniority `json:"seniority,omitempty" validate:"omitempty,oneof=junior mid senior"`
	JobURLs   []string  `json:"job_urls,omitempty" validate:"omitempty,max=10,dive,url"`
}

// Validate validates the ResearchRequest using the validator.
func (r *ResearchRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Normalize trims free-text fields and lowercases seniority.
func (r *ResearchRequest) Normalize() {
	r.Company = strings.TrimSpace(r.Company)
	r.Role = strings.TrimSpace(r.Role)
	r.Country = strings.TrimSpace(r.Country)
	r.Seniority = Seniority(strings.ToLower(strings.TrimSpace(string(r.Seniority))))
}

// SeniorityOrDefault returns the requested seniority or "mid".
func (r *ResearchRequest) SeniorityOrDefault() Seniority {
	if r.Seniority == "" {
		return SeniorityMid
	}
	return r.Seniority
}
