package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/interview-prep/internal/types"
)

// SearchInput holds the fields of a new search.
type SearchInput struct {
	ID        string
	UserID    string
	Company   string
	Role      string
	Country   string
	Seniority string
}

const searchColumns = `id, COALESCE(user_id, ''), company, COALESCE(role, ''), COALESCE(country, ''),
	COALESCE(seniority, ''), status, error_message, overall_fit_score, preparation_priorities,
	progress_step, progress_updated_at, created_at, updated_at`

// CreateSearch inserts a pending search. Creating an existing id is a no-op.
func (db *DB) CreateSearch(ctx context.Context, in SearchInput) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO searches (id, user_id, company, role, country, seniority, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		in.ID, nullIfEmpty(in.UserID), in.Company, nullIfEmpty(in.Role),
		nullIfEmpty(in.Country), nullIfEmpty(in.Seniority), types.SearchPending,
	)
	if err != nil {
		return fmt.Errorf("failed to create search: %w", err)
	}
	return nil
}

// GetSearch retrieves a search by id. A missing search returns nil, nil.
func (db *DB) GetSearch(ctx context.Context, id string) (*Search, error) {
	var s Search
	var priorities []byte
	err := db.pool.QueryRow(ctx,
		`SELECT `+searchColumns+` FROM searches WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.Company, &s.Role, &s.Country, &s.Seniority, &s.Status,
		&s.ErrorMessage, &s.OverallFitScore, &priorities, &s.ProgressStep,
		&s.ProgressUpdatedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get search: %w", err)
	}
	if len(priorities) > 0 {
		_ = json.Unmarshal(priorities, &s.PreparationPriorities)
	}
	return &s, nil
}

// MarkSearchProcessing moves a search to processing.
func (db *DB) MarkSearchProcessing(ctx context.Context, id string) error {
	return db.setSearchStatus(ctx, id, types.SearchProcessing, nil)
}

// FailSearch marks a search failed with a message.
func (db *DB) FailSearch(ctx context.Context, id, message string) error {
	return db.setSearchStatus(ctx, id, types.SearchFailed, &message)
}

func (db *DB) setSearchStatus(ctx context.Context, id string, status types.SearchStatus, message *string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE searches SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3`,
		status, message, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set search status %s: %w", status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("search not found: %s", id)
	}
	return nil
}

// CompleteSearch marks a search completed with the fit score and priorities.
func (db *DB) CompleteSearch(ctx context.Context, id string, fitScore float64, priorities []string) error {
	if priorities == nil {
		priorities = []string{}
	}
	prioritiesJSON, err := json.Marshal(priorities)
	if err != nil {
		return fmt.Errorf("failed to marshal priorities: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE searches
		 SET status = $1, overall_fit_score = $2, preparation_priorities = $3,
		     error_message = NULL, updated_at = NOW()
		 WHERE id = $4`,
		types.SearchCompleted, fitScore, prioritiesJSON, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete search: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("search not found: %s", id)
	}
	return nil
}

// UpdateProgress records the latest progress step.
func (db *DB) UpdateProgress(ctx context.Context, id, step string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE searches SET progress_step = $1, progress_updated_at = NOW(), updated_at = NOW() WHERE id = $2`,
		step, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

// ListSearches returns a user's most recent searches.
func (db *DB) ListSearches(ctx context.Context, userID string, limit int) ([]Search, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+searchColumns+` FROM searches WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	defer rows.Close()

	var out []Search
	for rows.Next() {
		var s Search
		var priorities []byte
		if err := rows.Scan(&s.ID, &s.UserID, &s.Company, &s.Role, &s.Country, &s.Seniority, &s.Status,
			&s.ErrorMessage, &s.OverallFitScore, &priorities, &s.ProgressStep,
			&s.ProgressUpdatedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search: %w", err)
		}
		if len(priorities) > 0 {
			_ = json.Unmarshal(priorities, &s.PreparationPriorities)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
