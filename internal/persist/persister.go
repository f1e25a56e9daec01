package persist

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jonathan/interview-prep/internal/db"
	"github.com/jonathan/interview-prep/internal/observability"
	"github.com/jonathan/interview-prep/internal/types"
)

// ResultStore stores the final synthesis result.
type ResultStore interface {
	UpsertSynthesis(ctx context.Context, searchID string, result *types.SynthesisResult) error
	ReplaceStages(ctx context.Context, searchID string, stages []types.InterviewStage) (map[int]uuid.UUID, error)
	InsertQuestions(ctx context.Context, rows []db.QuestionRow) error
	CompleteSearch(ctx context.Context, searchID string, fitScore float64, priorities []string) error
}

// Summary counts what Persist wrote.
type Summary struct {
	Stages    int
	Questions int
}

// Persister writes the result of a run.
type Persister struct {
	store   ResultStore
	timeout time.Duration
}

// NewPersister creates a Persister; every write gets its own timeout.
func NewPersister(store ResultStore, timeout time.Duration) *Persister {
	return &Persister{store: store, timeout: timeout}
}

// Persist upserts the artifact as complete, replaces the stage rows, maps and
// inserts the questions, then completes the search. The first failure is
// returned and nothing after it is attempted.
func (p *Persister) Persist(ctx context.Context, searchID string, result *types.SynthesisResult) (summary Summary, err error) {
	ctx, span := observability.StartSpan(ctx, "interview.persist", "persist",
		attribute.String("search_id", searchID))
	defer func() { observability.EndSpan(span, err) }()

	log := observability.LoggerFromContext(ctx)

	if err := p.write(ctx, func(ctx context.Context) error {
		return p.store.UpsertSynthesis(ctx, searchID, result)
	}); err != nil {
		return summary, &WriteError{Step: StepArtifact, SearchID: searchID, Cause: err}
	}

	var stageIDs map[int]uuid.UUID
	if err := p.write(ctx, func(ctx context.Context) error {
		var err error
		stageIDs, err = p.store.ReplaceStages(ctx, searchID, result.Stages)
		return err
	}); err != nil {
		return summary, &WriteError{Step: StepStages, SearchID: searchID, Cause: err}
	}
	summary.Stages = len(stageIDs)

	rows, err := MapQuestions(searchID, result.Questions, stageIDs)
	if err != nil {
		return summary, err
	}

	if err := p.write(ctx, func(ctx context.Context) error {
		return p.store.InsertQuestions(ctx, rows)
	}); err != nil {
		return summary, &WriteError{Step: StepQuestions, SearchID: searchID, Cause: err}
	}
	summary.Questions = len(rows)

	if err := p.write(ctx, func(ctx context.Context) error {
		return p.store.CompleteSearch(ctx, searchID, result.Comparison.OverallFitScore, result.Guidance.Priorities)
	}); err != nil {
		return summary, &WriteError{Step: StepSearch, SearchID: searchID, Cause: err}
	}

	span.SetAttributes(attribute.Int("stages", summary.Stages), attribute.Int("questions", summary.Questions))
	log.Info("research persisted",
		slog.Int("stages", summary.Stages),
		slog.Int("questions", summary.Questions))
	return summary, nil
}

func (p *Persister) write(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return fn(ctx)
}
