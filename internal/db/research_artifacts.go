package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/interview-prep/internal/types"
)

// UpdateRawData writes the raw payloads onto an existing artifact row and marks
// it raw_data_saved. It returns the number of rows touched; zero means no row
// exists yet.
func (db *DB) UpdateRawData(ctx context.Context, searchID string, raw types.RawResearchData) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE research_artifacts
		 SET company_insights = $1, job_requirements = $2, cv_analysis = $3,
		     processing_status = $4, raw_data_saved_at = NOW(), updated_at = NOW()
		 WHERE search_id = $5`,
		jsonOrNull(raw.CompanyInsights), jsonOrNull(raw.JobRequirements), jsonOrNull(raw.CVAnalysis),
		types.ProcessingRawDataSaved, searchID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update raw data: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InsertRawData creates the artifact row with the raw payloads. A concurrent
// insert for the same search id turns into an update.
func (db *DB) InsertRawData(ctx context.Context, searchID string, raw types.RawResearchData) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO research_artifacts
		     (search_id, company_insights, job_requirements, cv_analysis, processing_status, raw_data_saved_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (search_id) DO UPDATE SET
		     company_insights = EXCLUDED.company_insights,
		     job_requirements = EXCLUDED.job_requirements,
		     cv_analysis = EXCLUDED.cv_analysis,
		     processing_status = EXCLUDED.processing_status,
		     raw_data_saved_at = EXCLUDED.raw_data_saved_at,
		     updated_at = NOW()`,
		searchID, jsonOrNull(raw.CompanyInsights), jsonOrNull(raw.JobRequirements), jsonOrNull(raw.CVAnalysis),
		types.ProcessingRawDataSaved,
	)
	if err != nil {
		return fmt.Errorf("failed to insert raw data: %w", err)
	}
	return nil
}

// UpsertSynthesis stores the synthesis result and marks the artifact complete.
// Raw payloads already on the row are kept.
func (db *DB) UpsertSynthesis(ctx context.Context, searchID string, result *types.SynthesisResult) error {
	cols, err := marshalSynthesis(result)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO research_artifacts
		     (search_id, interview_stages, synthesis_metadata, comparison_analysis,
		      interview_questions_data, preparation_guidance, processing_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (search_id) DO UPDATE SET
		     interview_stages = EXCLUDED.interview_stages,
		     synthesis_metadata = EXCLUDED.synthesis_metadata,
		     comparison_analysis = EXCLUDED.comparison_analysis,
		     interview_questions_data = EXCLUDED.interview_questions_data,
		     preparation_guidance = EXCLUDED.preparation_guidance,
		     processing_status = EXCLUDED.processing_status,
		     updated_at = NOW()`,
		searchID, cols.stages, cols.metadata, cols.comparison, cols.questions, cols.guidance,
		types.ProcessingComplete,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert synthesis: %w", err)
	}
	return nil
}

// MarkArtifactError flags the artifact row of a failed run, if one exists.
func (db *DB) MarkArtifactError(ctx context.Context, searchID string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE research_artifacts SET processing_status = $1, updated_at = NOW()
		 WHERE search_id = $2 AND processing_status <> $3`,
		types.ProcessingError, searchID, types.ProcessingComplete,
	)
	if err != nil {
		return fmt.Errorf("failed to mark artifact error: %w", err)
	}
	return nil
}

// GetResearchArtifact retrieves the artifact row for a search. A missing row
// returns nil, nil.
func (db *DB) GetResearchArtifact(ctx context.Context, searchID string) (*ResearchArtifact, error) {
	var a ResearchArtifact
	var companyInsights, jobRequirements, cvAnalysis, stages, metadata, comparison, questions, guidance []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, search_id, company_insights, job_requirements, cv_analysis, interview_stages,
		        synthesis_metadata, comparison_analysis, interview_questions_data, preparation_guidance,
		        processing_status, raw_data_saved_at, created_at, updated_at
		 FROM research_artifacts WHERE search_id = $1`,
		searchID,
	).Scan(&a.ID, &a.SearchID, &companyInsights, &jobRequirements, &cvAnalysis, &stages,
		&metadata, &comparison, &questions, &guidance,
		&a.ProcessingStatus, &a.RawDataSavedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get research artifact: %w", err)
	}

	a.CompanyInsights = companyInsights
	a.JobRequirements = jobRequirements
	a.CVAnalysis = cvAnalysis
	a.InterviewStages = stages
	a.SynthesisMetadata = metadata
	a.ComparisonAnalysis = comparison
	a.InterviewQuestionsData = questions
	a.PreparationGuidance = guidance
	return &a, nil
}

type synthesisColumns struct {
	stages, metadata, comparison, questions, guidance []byte
}

func marshalSynthesis(result *types.SynthesisResult) (synthesisColumns, error) {
	var cols synthesisColumns
	var err error
	if cols.stages, err = json.Marshal(result.Stages); err != nil {
		return cols, fmt.Errorf("failed to marshal stages: %w", err)
	}
	if cols.metadata, err = json.Marshal(result.Metadata); err != nil {
		return cols, fmt.Errorf("failed to marshal synthesis metadata: %w", err)
	}
	if cols.comparison, err = json.Marshal(result.Comparison); err != nil {
		return cols, fmt.Errorf("failed to marshal comparison: %w", err)
	}
	if cols.questions, err = json.Marshal(result.Questions); err != nil {
		return cols, fmt.Errorf("failed to marshal questions: %w", err)
	}
	if cols.guidance, err = json.Marshal(result.Guidance); err != nil {
		return cols, fmt.Errorf("failed to marshal guidance: %w", err)
	}
	return cols, nil
}

// jsonOrNull maps an absent payload to SQL NULL.
func jsonOrNull(raw json.RawMessage) any {
	if !types.HasPayload(raw) {
		return nil
	}
	return []byte(raw)
}
