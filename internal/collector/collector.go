// Package collector fans out to the three analyzers concurrently and joins them
// settle-all: each source either yields a payload or nil, and the collection as
// a whole never fails.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/interview-prep/internal/analyzer"
	"github.com/jonathan/interview-prep/internal/config"
	"github.com/jonathan/interview-prep/internal/observability"
	"github.com/jonathan/interview-prep/internal/types"
)

// Outcome labels used in logs and metrics.
const (
	OutcomeSuccess = "success"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Input carries everything the three calls need.
type Input struct {
	SearchID string
	UserID   string
	Company  string
	Role     string
	Country  string
	JobURLs  []string
	// CVText empty means no CV call is made and the CV slot stays nil.
	CVText string
}

// Report records what happened to each source.
type Report struct {
	Outcomes  map[string]string
	Durations map[string]time.Duration
}

// Collector runs the fan-out with one timeout per source.
type Collector struct {
	analyzers analyzer.Analyzers
	timeouts  config.TimeoutConfig
}

// New creates a Collector.
func New(a analyzer.Analyzers, timeouts config.TimeoutConfig) *Collector {
	return &Collector{analyzers: a, timeouts: timeouts}
}

type slot struct {
	source   string
	timeout  time.Duration
	call     func(ctx context.Context) (json.RawMessage, error)
	data     json.RawMessage
	outcome  string
	duration time.Duration
}

// Collect calls all sources concurrently and returns once every call has
// settled. Failures and timeouts become nil payloads.
func (c *Collector) Collect(ctx context.Context, in Input) (types.RawResearchData, Report) {
	ctx, span := observability.StartSpan(ctx, "interview.collector", "collect",
		attribute.String("search_id", in.SearchID))
	defer span.End()

	log := observability.LoggerFromContext(ctx)

	slots := []*slot{
		{
			source:  types.SourceCompanyResearch,
			timeout: c.timeouts.CompanyResearch,
			call: func(ctx context.Context) (json.RawMessage, error) {
				return c.analyzers.CompanyResearch(ctx, analyzer.CompanyResearchInput{
					Company:  in.Company,
					Role:     in.Role,
					Country:  in.Country,
					SearchID: in.SearchID,
				})
			},
		},
		{
			source:  types.SourceJobAnalysis,
			timeout: c.timeouts.JobAnalysis,
			call: func(ctx context.Context) (json.RawMessage, error) {
				return c.analyzers.JobAnalysis(ctx, analyzer.JobAnalysisInput{
					URLs:     in.JobURLs,
					SearchID: in.SearchID,
					Company:  in.Company,
					Role:     in.Role,
				})
			},
		},
		{
			source:  types.SourceCVAnalysis,
			timeout: c.timeouts.CVAnalysis,
		},
	}
	if in.CVText != "" {
		slots[2].call = func(ctx context.Context) (json.RawMessage, error) {
			return c.analyzers.CVAnalysis(ctx, analyzer.CVAnalysisInput{CVText: in.CVText, UserID: in.UserID})
		}
	}

	// A plain Group (not WithContext): one source failing must not cancel the others.
	var g errgroup.Group
	for _, s := range slots {
		if s.call == nil {
			s.outcome = OutcomeSkipped
			continue
		}
		g.Go(func() error {
			s.run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	raw := types.RawResearchData{
		CompanyInsights: slots[0].data,
		JobRequirements: slots[1].data,
		CVAnalysis:      slots[2].data,
	}
	report := Report{
		Outcomes:  make(map[string]string, len(slots)),
		Durations: make(map[string]time.Duration, len(slots)),
	}
	for _, s := range slots {
		report.Outcomes[s.source] = s.outcome
		report.Durations[s.source] = s.duration
		span.SetAttributes(attribute.String("outcome."+s.source, s.outcome))
	}

	log.Info("collection settled",
		slog.Any("outcomes", report.Outcomes),
		slog.Any("sources", raw.Sources()))
	return raw, report
}

func (s *slot) run(parent context.Context) {
	log := observability.LoggerFromContext(parent)

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	type reply struct {
		data json.RawMessage
		err  error
	}
	done := make(chan reply, 1)

	start := time.Now()
	go func() {
		data, err := s.call(ctx)
		done <- reply{data: data, err: err}
	}()

	// A call that ignores its context is abandoned at the deadline.
	var data json.RawMessage
	var err error
	select {
	case r := <-done:
		data, err = r.data, r.err
	case <-ctx.Done():
		err = ctx.Err()
	}
	s.duration = time.Since(start)

	switch {
	case err == nil:
		s.data = data
		s.outcome = OutcomeSuccess
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded:
		s.outcome = OutcomeTimeout
		log.Warn("analyzer timed out",
			slog.String("source", s.source),
			slog.Duration("timeout", s.timeout))
	default:
		s.outcome = OutcomeError
		log.Warn("analyzer failed",
			slog.String("source", s.source),
			slog.Any("error", err))
	}
	observability.ObserveAnalyzerCall(s.source, s.outcome, s.duration)
}
