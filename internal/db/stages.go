package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/interview-prep/internal/types"
)

// ReplaceStages deletes the stages (and, by cascade, questions) of a search and
// inserts the given ones in a single transaction. It returns the generated id
// of every stage keyed by order index.
func (db *DB) ReplaceStages(ctx context.Context, searchID string, stages []types.InterviewStage) (map[int]uuid.UUID, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM interview_stages WHERE search_id = $1`, searchID); err != nil {
		return nil, fmt.Errorf("failed to delete stages: %w", err)
	}

	ids := make(map[int]uuid.UUID, len(stages))
	for _, st := range stages {
		tips, _ := json.Marshal(nonNilStrings(st.PreparationTips))
		common, _ := json.Marshal(nonNilStrings(st.CommonQuestions))
		redFlags, _ := json.Marshal(nonNilStrings(st.RedFlags))

		var id uuid.UUID
		err := tx.QueryRow(ctx,
			`INSERT INTO interview_stages
			     (search_id, name, order_index, duration, interviewer, content, guidance,
			      preparation_tips, common_questions, red_flags)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING id`,
			searchID, st.Name, st.OrderIndex, nullIfEmpty(st.Duration), nullIfEmpty(st.Interviewer),
			nullIfEmpty(st.Content), nullIfEmpty(st.Guidance), tips, common, redFlags,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to insert stage %d: %w", st.OrderIndex, err)
		}
		ids[st.OrderIndex] = id
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit stages: %w", err)
	}
	return ids, nil
}

// InsertQuestions inserts question rows in one batch inside a transaction.
// Row order is kept as the read order.
func (db *DB) InsertQuestions(ctx context.Context, rows []QuestionRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for i, r := range rows {
		criteria, _ := json.Marshal(nonNilStrings(r.EvaluationCriteria))
		followUps, _ := json.Marshal(nonNilStrings(r.FollowUpQuestions))
		batch.Queue(
			`INSERT INTO interview_questions
			     (search_id, stage_id, question, category, difficulty, rationale, company_context,
			      confidence, star_method_relevant, suggested_answer_approach,
			      evaluation_criteria, follow_up_questions, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			r.SearchID, r.StageID, r.Text, string(r.Category), string(r.Difficulty),
			nullIfEmpty(r.Rationale), nullIfEmpty(r.CompanyContext), r.Confidence,
			r.StarMethodRelevant, nullIfEmpty(r.SuggestedAnswerApproach), criteria, followUps, i,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to insert question %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close question batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit questions: %w", err)
	}
	return nil
}

// ListStagesWithQuestions returns the stages of a search in order, each with
// its questions in insertion order.
func (db *DB) ListStagesWithQuestions(ctx context.Context, searchID string) ([]StageWithQuestions, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, search_id, name, order_index, COALESCE(duration, ''), COALESCE(interviewer, ''),
		        COALESCE(content, ''), COALESCE(guidance, ''), preparation_tips, common_questions, red_flags
		 FROM interview_stages WHERE search_id = $1 ORDER BY order_index`,
		searchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}

	var out []StageWithQuestions
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var s StageWithQuestions
		var tips, common, redFlags []byte
		if err := rows.Scan(&s.ID, &s.SearchID, &s.Name, &s.OrderIndex, &s.Duration, &s.Interviewer,
			&s.Content, &s.Guidance, &tips, &common, &redFlags); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		_ = json.Unmarshal(tips, &s.PreparationTips)
		_ = json.Unmarshal(common, &s.CommonQuestions)
		_ = json.Unmarshal(redFlags, &s.RedFlags)
		s.Questions = []types.Question{}
		index[s.ID] = len(out)
		out = append(out, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}

	qrows, err := db.pool.Query(ctx,
		`SELECT stage_id, question, category, difficulty, COALESCE(rationale, ''), COALESCE(company_context, ''),
		        confidence, star_method_relevant, COALESCE(suggested_answer_approach, ''),
		        evaluation_criteria, follow_up_questions
		 FROM interview_questions WHERE search_id = $1 ORDER BY position`,
		searchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer qrows.Close()

	for qrows.Next() {
		var stageID uuid.UUID
		var q types.Question
		var criteria, followUps []byte
		if err := qrows.Scan(&stageID, &q.Text, &q.Category, &q.Difficulty, &q.Rationale, &q.CompanyContext,
			&q.Confidence, &q.StarMethodRelevant, &q.SuggestedAnswerApproach, &criteria, &followUps); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		_ = json.Unmarshal(criteria, &q.EvaluationCriteria)
		_ = json.Unmarshal(followUps, &q.FollowUpQuestions)
		if i, ok := index[stageID]; ok {
			out[i].Questions = append(out[i].Questions, q)
		}
	}
	return out, qrows.Err()
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
