package types

import "time"

// InterviewStage is one step of the company's interview process.
type InterviewStage struct {
	Name            string   `json:"name"`
	OrderIndex      int      `json:"order_index"`
	Duration        string   `json:"duration,omitempty"`
	Interviewer     string   `json:"interviewer,omitempty"`
	Content         string   `json:"content,omitempty"`
	Guidance        string   `json:"guidance,omitempty"`
	PreparationTips []string `json:"preparation_tips,omitempty"`
	CommonQuestions []string `json:"common_questions,omitempty"`
	RedFlags        []string `json:"red_flags,omitempty"`
}

// Gap is a missing or weak area relative to the job.
type Gap struct {
	Area           string `json:"area"`
	Severity       string `json:"severity,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// ComparisonAnalysis compares the candidate with the job requirements.
type ComparisonAnalysis struct {
	OverallFitScore     float64  `json:"overall_fit_score"`
	Strengths           []string `json:"strengths"`
	Gaps                []Gap    `json:"gaps"`
	SkillMatches        []string `json:"skill_matches"`
	ExperienceAlignment string   `json:"experience_alignment,omitempty"`
}

// PreparationGuidance is the study plan handed to the candidate.
type PreparationGuidance struct {
	Timeline   string   `json:"timeline,omitempty"`
	Priorities []string `json:"priorities"`
	FocusAreas []string `json:"focus_areas"`
	Resources  []string `json:"resources"`
	DayOfTips  []string `json:"day_of_tips"`
}

// SynthesisMetadata describes how a result was produced.
type SynthesisMetadata struct {
	Model                string    `json:"model,omitempty"`
	PromptTokens         int       `json:"prompt_tokens"`
	Sources              []string  `json:"sources"`
	ParseFailed          bool      `json:"parse_failed,omitempty"`
	SchemaWarnings       []string  `json:"schema_warnings,omitempty"`
	RefinementIterations int       `json:"refinement_iterations"`
	RefinementCalls      int       `json:"refinement_calls"`
	QuestionsAdded       int       `json:"questions_added"`
	QuestionTargetMet    bool      `json:"question_target_met"`
	Warning              string    `json:"warning,omitempty"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// SynthesisResult is the coerced output of the synthesis call, extended in
// place by the quality gate.
type SynthesisResult struct {
	Stages     []InterviewStage    `json:"interview_stages"`
	Comparison ComparisonAnalysis  `json:"comparison_analysis"`
	Guidance   PreparationGuidance `json:"preparation_guidance"`
	Questions  QuestionSet         `json:"interview_questions"`
	Metadata   SynthesisMetadata   `json:"synthesis_metadata"`
}

// NewSynthesisResult returns the empty-but-valid result used when the model
// reply cannot be parsed.
func NewSynthesisResult() *SynthesisResult {
	return &SynthesisResult{
		Stages: []InterviewStage{},
		Comparison: ComparisonAnalysis{
			Strengths:    []string{},
			Gaps:         []Gap{},
			SkillMatches: []string{},
		},
		Guidance: PreparationGuidance{
			Priorities: []string{},
			FocusAreas: []string{},
			Resources:  []string{},
			DayOfTips:  []string{},
		},
		Questions: QuestionSet{},
	}
}
