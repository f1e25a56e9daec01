package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// GetResumeText returns the content of a stored CV. When userID is non-empty
// the CV must belong to that user. A missing CV returns "", nil.
func (db *DB) GetResumeText(ctx context.Context, id uuid.UUID, userID string) (string, error) {
	var content string
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM resumes WHERE id = $1 AND ($2 = '' OR user_id = $2)`,
		id, userID,
	).Scan(&content)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get resume: %w", err)
	}
	return content, nil
}

// CreateResume stores a CV and returns its id.
func (db *DB) CreateResume(ctx context.Context, userID, content string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO resumes (user_id, content) VALUES ($1, $2) RETURNING id`,
		nullIfEmpty(userID), content,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create resume: %w", err)
	}
	return id, nil
}
