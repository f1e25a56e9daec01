// Package pipeline orchestrates a research run: collection, checkpoint,
// synthesis, the quality gate and persistence, with progress reported at
// every stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jonathan/interview-prep/internal/collector"
	"github.com/jonathan/interview-prep/internal/db"
	"github.com/jonathan/interview-prep/internal/observability"
	"github.com/jonathan/interview-prep/internal/persist"
	"github.com/jonathan/interview-prep/internal/progress"
	"github.com/jonathan/interview-prep/internal/quality"
	"github.com/jonathan/interview-prep/internal/synthesis"
	"github.com/jonathan/interview-prep/internal/types"
)

// Store is the database surface a run needs.
type Store interface {
	persist.RawStore
	persist.ResultStore
	CreateSearch(ctx context.Context, in db.SearchInput) error
	MarkSearchProcessing(ctx context.Context, id string) error
	FailSearch(ctx context.Context, id, message string) error
	MarkArtifactError(ctx context.Context, searchID string) error
	GetResumeText(ctx context.Context, id uuid.UUID, userID string) (string, error)
}

// Collector gathers raw research.
type Collector interface {
	Collect(ctx context.Context, in collector.Input) (types.RawResearchData, collector.Report)
}

// Synthesizer turns raw research into a synthesis result.
type Synthesizer interface {
	NewContext(req types.ResearchRequest, raw types.RawResearchData) *synthesis.Context
	Synthesize(ctx context.Context, rc *synthesis.Context) (*types.SynthesisResult, error)
}

// Refiner tops up under-filled question sets.
type Refiner interface {
	Refine(ctx context.Context, rc *synthesis.Context, result *types.SynthesisResult) quality.Outcome
}

// Deps are the collaborators of a Runner.
type Deps struct {
	Store       Store
	Collector   Collector
	Synthesizer Synthesizer
	Refiner     Refiner
	Tracker     *progress.Tracker
	Tracing     *observability.Tracing
	// CheckpointTimeout and PersistTimeout bound each database write.
	CheckpointTimeout time.Duration
	PersistTimeout    time.Duration
}

// Result is what a successful run produced.
type Result struct {
	SearchID  string
	Synthesis *types.SynthesisResult
	Report    collector.Report
	Outcome   quality.Outcome
	Summary   persist.Summary
}

// Runner executes research runs.
type Runner struct {
	store        Store
	collector    Collector
	synth        Synthesizer
	refiner      Refiner
	tracker      *progress.Tracker
	tracing      *observability.Tracing
	checkpointer *persist.Checkpointer
	persister    *persist.Persister
}

// NewRunner creates a Runner. A nil Tracker gets an in-memory one.
func NewRunner(d Deps) *Runner {
	tracker := d.Tracker
	if tracker == nil {
		tracker = progress.NewTracker()
	}
	return &Runner{
		store:        d.Store,
		collector:    d.Collector,
		synth:        d.Synthesizer,
		refiner:      d.Refiner,
		tracker:      tracker,
		tracing:      d.Tracing,
		checkpointer: persist.NewCheckpointer(d.Store, d.CheckpointTimeout),
		persister:    persist.NewPersister(d.Store, d.PersistTimeout),
	}
}

// Tracker returns the progress tracker runs report to.
func (r *Runner) Tracker() *progress.Tracker {
	return r.tracker
}

// Run executes one research run for req. On a fatal error the search is
// marked failed, progress moves to failed, and the error is returned.
// Collection failures and a failed checkpoint are absorbed.
func (r *Runner) Run(ctx context.Context, req types.ResearchRequest) (res *Result, err error) {
	req.Normalize()
	if req.SearchID == "" {
		return nil, errors.New("search id is required")
	}

	log := observability.LoggerFromContext(ctx).With(
		slog.String("search_id", req.SearchID),
		slog.String("company", req.Company))
	ctx = observability.ContextWithLogger(ctx, log)

	ctx, span := observability.StartSpan(ctx, "interview.pipeline", "research_run",
		attribute.String("search_id", req.SearchID),
		attribute.String("company", req.Company))

	observability.ResearchRunsInFlight.Inc()
	start := time.Now()
	defer func() {
		observability.ResearchRunsInFlight.Dec()
		if err != nil {
			r.fail(ctx, req.SearchID, err)
		} else {
			observability.ResearchRunsTotal.WithLabelValues(string(types.SearchCompleted)).Inc()
			log.Info("research run completed", slog.Duration("duration", time.Since(start)))
		}
		observability.EndSpan(span, err)
	}()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	if err := r.store.CreateSearch(ctx, db.SearchInput{
		ID: req.SearchID, UserID: req.UserID, Company: req.Company,
		Role: req.Role, Country: req.Country, Seniority: string(req.Seniority),
	}); err != nil {
		return nil, err
	}

	req.CVText = r.resolveCV(ctx, req)

	if err := r.store.MarkSearchProcessing(ctx, req.SearchID); err != nil {
		return nil, err
	}

	res = &Result{SearchID: req.SearchID}

	r.advance(ctx, req.SearchID, progress.StepDataGatheringStart)
	raw, report := r.collector.Collect(ctx, collector.Input{
		SearchID: req.SearchID,
		UserID:   req.UserID,
		Company:  req.Company,
		Role:     req.Role,
		Country:  req.Country,
		JobURLs:  req.JobURLs,
		CVText:   req.CVText,
	})
	res.Report = report
	r.advance(ctx, req.SearchID, progress.StepDataGatheringComplete)

	if err := r.checkpointer.SaveRaw(ctx, req.SearchID, raw); err != nil {
		log.Warn("raw data checkpoint failed; continuing", slog.String("error", err.Error()))
	}

	r.advance(ctx, req.SearchID, progress.StepAISynthesisStart)
	rc := r.synth.NewContext(req, raw)
	result, err := r.synth.Synthesize(ctx, rc)
	if err != nil {
		return nil, err
	}
	res.Synthesis = result
	r.advance(ctx, req.SearchID, progress.StepAISynthesisComplete)

	r.advance(ctx, req.SearchID, progress.StepQuestionGenerationStart)
	res.Outcome = r.refiner.Refine(ctx, rc, result)
	r.advance(ctx, req.SearchID, progress.StepQuestionGenerationComplete)

	summary, err := r.persister.Persist(ctx, req.SearchID, result)
	if err != nil {
		return nil, err
	}
	res.Summary = summary

	r.advance(ctx, req.SearchID, progress.StepCompleted)
	return res, nil
}

// resolveCV returns inline CV text, or the stored CV's content. A failed
// lookup degrades to no CV.
func (r *Runner) resolveCV(ctx context.Context, req types.ResearchRequest) string {
	if req.CVText != "" || req.CVID == "" {
		return req.CVText
	}
	log := observability.LoggerFromContext(ctx).With(slog.String("cv_id", req.CVID))

	id, err := uuid.Parse(req.CVID)
	if err == nil {
		var text string
		text, err = r.store.GetResumeText(ctx, id, req.UserID)
		if err == nil {
			if text == "" {
				log.Warn("stored CV not found; continuing without CV")
			}
			return text
		}
	}
	log.Warn("stored CV lookup failed; continuing without CV", slog.String("error", err.Error()))
	return ""
}

func (r *Runner) advance(ctx context.Context, searchID string, step progress.Step) {
	if err := r.tracker.Advance(ctx, searchID, step); err != nil {
		observability.LoggerFromContext(ctx).Warn("progress update failed",
			slog.String("step", string(step)), slog.String("error", err.Error()))
	}
}

// fail is the top-level handler for a fatal error. It uses a context that
// survives cancellation of the run so the failure is always recorded.
func (r *Runner) fail(ctx context.Context, searchID string, cause error) {
	log := observability.LoggerFromContext(ctx)
	log.Error("research run failed", slog.String("error", cause.Error()))
	observability.ResearchRunsTotal.WithLabelValues(string(types.SearchFailed)).Inc()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := r.store.FailSearch(ctx, searchID, cause.Error()); err != nil {
		log.Error("failed to mark search failed", slog.String("error", err.Error()))
	}
	if err := r.store.MarkArtifactError(ctx, searchID); err != nil {
		log.Warn("failed to flag artifact", slog.String("error", err.Error()))
	}
	if err := r.tracker.Fail(ctx, searchID, cause.Error()); err != nil {
		log.Warn("progress update failed", slog.String("step", string(progress.StepFailed)), slog.String("error", err.Error()))
	}
	if err := r.tracing.Flush(ctx); err != nil {
		log.Warn("trace flush failed", slog.String("error", err.Error()))
	}
}
