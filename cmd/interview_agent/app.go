package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jonathan/interview-prep/internal/analyzer"
	"github.com/jonathan/interview-prep/internal/collector"
	"github.com/jonathan/interview-prep/internal/config"
	"github.com/jonathan/interview-prep/internal/db"
	"github.com/jonathan/interview-prep/internal/llm"
	"github.com/jonathan/interview-prep/internal/observability"
	"github.com/jonathan/interview-prep/internal/pipeline"
	"github.com/jonathan/interview-prep/internal/progress"
	"github.com/jonathan/interview-prep/internal/quality"
	"github.com/jonathan/interview-prep/internal/synthesis"
)

// app wires the long-lived components shared by serve and research.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *db.DB
	redis   redis.UniversalClient
	llm     llm.Client
	tracing *observability.Tracing
	tracker *progress.Tracker
	runner  *pipeline.Runner
}

// checkRequired reports the settings without which no run can start.
func checkRequired(cfg config.Config) error {
	var errs []error
	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL environment variable is required"))
	}
	if cfg.GeminiAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY environment variable or --api-key flag is required"))
	}
	return errors.Join(errs...)
}

// llmConfig binds the configured models to the synthesis and refinement tiers.
func llmConfig(m config.ModelConfig) *llm.Config {
	return llm.DefaultConfig().
		WithModel(llm.TierAdvanced, m.Synthesis, m.SynthesisMaxTokens).
		WithModel(llm.TierStandard, m.Refinement, m.RefinementMaxTokens)
}

func newApp(ctx context.Context, cfg config.Config) (a *app, err error) {
	if err := checkRequired(cfg); err != nil {
		return nil, err
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close(context.WithoutCancel(ctx))
		}
	}()

	a.tracing, err = observability.SetupTracing(ctx, cfg)
	if err != nil {
		logger.Warn("tracing setup failed; continuing without traces", slog.String("error", err.Error()))
		a.tracing, err = nil, nil
	}

	a.db, err = db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err = a.db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	sinks := []progress.Sink{progress.NewPostgresSink(a.db)}
	if cfg.RedisURL != "" {
		opts, perr := redis.ParseURL(cfg.RedisURL)
		if perr != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", perr)
		}
		a.redis = redis.NewClient(opts)
		if perr := a.redis.Ping(ctx).Err(); perr != nil {
			logger.Warn("redis unreachable; progress is mirrored to postgres only", slog.String("error", perr.Error()))
			_ = a.redis.Close()
			a.redis = nil
		} else {
			sinks = append(sinks, progress.NewRedisSink(a.redis, cfg.ProgressTTL))
		}
	}

	a.llm, err = llm.NewClient(ctx, llmConfig(cfg.Pipeline.Models), cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	a.tracker = progress.NewTracker(sinks...)
	a.runner = pipeline.NewRunner(pipeline.Deps{
		Store:             a.db,
		Collector:         collector.New(analyzer.NewHTTPClient(cfg.Analyzers, nil), cfg.Pipeline.Timeouts),
		Synthesizer:       synthesis.NewEngine(a.llm, cfg.Pipeline),
		Refiner:           quality.NewRefiner(a.llm, cfg.Pipeline),
		Tracker:           a.tracker,
		Tracing:           a.tracing,
		CheckpointTimeout: cfg.Pipeline.Timeouts.Checkpoint,
		PersistTimeout:    cfg.Pipeline.Timeouts.Persist,
	})
	return a, nil
}

// Close releases everything newApp opened. It is safe on a partial app.
func (a *app) Close(ctx context.Context) {
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logger.Warn("tracing shutdown failed", slog.String("error", err.Error()))
	}
}
