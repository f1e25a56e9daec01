// Package synthesis builds the large-context prompt from collected research,
// makes the single synthesis call and coerces the reply into strict types.
package synthesis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonathan/interview-prep/internal/config"
	"github.com/jonathan/interview-prep/internal/llm"
	"github.com/jonathan/interview-prep/internal/observability"
	"github.com/jonathan/interview-prep/internal/relevance"
	"github.com/jonathan/interview-prep/internal/schemas"
	"github.com/jonathan/interview-prep/internal/types"
)

// Engine produces a SynthesisResult from raw research.
type Engine struct {
	client llm.Client
	scorer *relevance.Scorer
	tokens *llm.TokenCounter
	cfg    config.PipelineConfig
	now    func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(client llm.Client, cfg config.PipelineConfig) *Engine {
	return &Engine{
		client: client,
		scorer: relevance.NewScorer(cfg.Relevance),
		tokens: &llm.TokenCounter{},
		cfg:    cfg,
		now:    time.Now,
	}
}

// NewContext decodes raw research for prompt building with the engine's limits.
func (e *Engine) NewContext(req types.ResearchRequest, raw types.RawResearchData) *Context {
	return NewContext(req, raw, e.scorer, e.cfg.SectionCharBudget)
}

// Synthesize makes one generative call. A failed call returns nil and a
// *CallError; a reply that cannot be parsed returns the empty default result.
func (e *Engine) Synthesize(ctx context.Context, rc *Context) (result *types.SynthesisResult, err error) {
	ctx, span := observability.StartSpan(ctx, "interview.synthesis", "synthesize",
		attribute.String("search_id", rc.Request.SearchID))
	defer func() { observability.EndSpan(span, err) }()

	log := observability.LoggerFromContext(ctx)

	prompt, err := BuildPrompt(rc, e.cfg.Quality.PerCategoryTarget, e.cfg.Quality.MinTotal)
	if err != nil {
		return nil, err
	}
	promptTokens := e.tokens.Count(prompt.System) + e.tokens.Count(prompt.User)
	model := e.client.GetModel(llm.TierAdvanced)
	span.SetAttributes(attribute.Int("prompt_tokens", promptTokens), attribute.String("model", model))
	log.Info("synthesis prompt built",
		slog.Any("sections", prompt.Sections),
		slog.Int("prompt_tokens", promptTokens),
		slog.String("model", model))

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeouts.Synthesis)
	defer cancel()

	start := time.Now()
	text, err := e.client.GenerateJSON(callCtx, llm.Request{
		System: prompt.System,
		Prompt: prompt.User,
		Tier:   llm.TierAdvanced,
	})
	observability.ObserveLLMCall("synthesis", err, time.Since(start))
	if err != nil {
		msg := "generation failed"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "generation timed out"
		}
		return nil, &CallError{Model: model, Message: msg, Cause: err}
	}

	result, warnings := ParseResult(text)
	if !result.Metadata.ParseFailed {
		var ve *schemas.ValidationError
		if verr := schemas.ValidateJSONString(schemas.Synthesis, llm.CleanJSONBlock(text)); errors.As(verr, &ve) {
			warnings = append(warnings, ve.Messages()...)
		}
	}
	if result.Metadata.ParseFailed {
		log.Warn("synthesis reply could not be parsed; continuing with empty result",
			slog.Int("reply_chars", len(text)))
	}
	if len(warnings) > 0 {
		log.Warn("synthesis reply repaired", slog.Any("warnings", warnings))
	}

	for cat, qs := range result.Questions {
		observability.AddQuestions(string(cat), "synthesis", len(qs))
	}

	result.Metadata.Model = model
	result.Metadata.PromptTokens = promptTokens
	result.Metadata.Sources = rc.Raw.Sources()
	result.Metadata.SchemaWarnings = warnings
	result.Metadata.GeneratedAt = e.now().UTC()
	return result, nil
}
