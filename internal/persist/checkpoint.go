// Package persist writes research artifacts, interview stages and questions.
package persist

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonathan/interview-prep/internal/observability"
	"github.com/jonathan/interview-prep/internal/types"
)

// RawStore stores the raw research payloads.
type RawStore interface {
	UpdateRawData(ctx context.Context, searchID string, raw types.RawResearchData) (int64, error)
	InsertRawData(ctx context.Context, searchID string, raw types.RawResearchData) error
}

// Checkpointer saves collected research before synthesis.
type Checkpointer struct {
	store   RawStore
	timeout time.Duration
}

// NewCheckpointer creates a Checkpointer whose save is bounded by timeout.
func NewCheckpointer(store RawStore, timeout time.Duration) *Checkpointer {
	return &Checkpointer{store: store, timeout: timeout}
}

// SaveRaw updates the artifact row for searchID with the raw payloads and
// marks it raw_data_saved. When no row exists it inserts one, once. Errors are
// returned as *WriteError; callers treat them as non-fatal.
func (c *Checkpointer) SaveRaw(ctx context.Context, searchID string, raw types.RawResearchData) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log := observability.LoggerFromContext(ctx)

	n, err := c.store.UpdateRawData(ctx, searchID, raw)
	if err != nil {
		return &WriteError{Step: StepCheckpoint, SearchID: searchID, Cause: err}
	}
	if n > 0 {
		log.Debug("raw data checkpoint updated", slog.Int64("rows", n))
		return nil
	}

	if err := c.store.InsertRawData(ctx, searchID, raw); err != nil {
		return &WriteError{Step: StepCheckpoint, SearchID: searchID, Cause: err}
	}
	log.Debug("raw data checkpoint inserted")
	return nil
}
