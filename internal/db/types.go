package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/interview-prep/internal/types"
)

// Search is a row of the searches table.
type Search struct {
	ID                    string             `json:"id"`
	UserID                string             `json:"user_id,omitempty"`
	Company               string             `json:"company"`
	Role                  string             `json:"role,omitempty"`
	Country               string             `json:"country,omitempty"`
	Seniority             string             `json:"seniority,omitempty"`
	Status                types.SearchStatus `json:"status"`
	ErrorMessage          *string            `json:"error_message,omitempty"`
	OverallFitScore       *float64           `json:"overall_fit_score,omitempty"`
	PreparationPriorities []string           `json:"preparation_priorities,omitempty"`
	ProgressStep          *string            `json:"progress_step,omitempty"`
	ProgressUpdatedAt     *time.Time         `json:"progress_updated_at,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// ResearchArtifact is a row of the research_artifacts table. JSON columns are
// returned as raw bytes.
type ResearchArtifact struct {
	ID                     uuid.UUID              `json:"id"`
	SearchID               string                 `json:"search_id"`
	CompanyInsights        json.RawMessage        `json:"company_insights,omitempty"`
	JobRequirements        json.RawMessage        `json:"job_requirements,omitempty"`
	CVAnalysis             json.RawMessage        `json:"cv_analysis,omitempty"`
	InterviewStages        json.RawMessage        `json:"interview_stages,omitempty"`
	SynthesisMetadata      json.RawMessage        `json:"synthesis_metadata,omitempty"`
	ComparisonAnalysis     json.RawMessage        `json:"comparison_analysis,omitempty"`
	InterviewQuestionsData json.RawMessage        `json:"interview_questions_data,omitempty"`
	PreparationGuidance    json.RawMessage        `json:"preparation_guidance,omitempty"`
	ProcessingStatus       types.ProcessingStatus `json:"processing_status"`
	RawDataSavedAt         *time.Time             `json:"raw_data_saved_at,omitempty"`
	CreatedAt              time.Time              `json:"created_at"`
	UpdatedAt              time.Time              `json:"updated_at"`
}

// StageRow is a persisted interview stage.
type StageRow struct {
	ID       uuid.UUID `json:"id"`
	SearchID string    `json:"search_id"`
	types.InterviewStage
}

// QuestionRow is a question bound to a persisted stage.
type QuestionRow struct {
	StageID  uuid.UUID `json:"stage_id"`
	SearchID string    `json:"search_id"`
	types.Question
}

// StageWithQuestions is a stage and the questions mapped to it.
type StageWithQuestions struct {
	StageRow
	Questions []types.Question `json:"questions"`
}
