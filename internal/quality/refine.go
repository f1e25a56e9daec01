// Package quality tops up an under-filled question set with narrower
// follow-up generation calls until the count thresholds hold or the iteration
// cap is reached.
package quality

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonathan/interview-prep/internal/config"
	"github.com/jonathan/interview-prep/internal/llm"
	"github.com/jonathan/interview-prep/internal/observability"
	"github.com/jonathan/interview-prep/internal/prompts"
	"github.com/jonathan/interview-prep/internal/schemas"
	"github.com/jonathan/interview-prep/internal/synthesis"
	"github.com/jonathan/interview-prep/internal/types"
)

const refinementPromptFile = "refinement.json"

// Outcome summarizes a refinement pass.
type Outcome struct {
	Iterations int
	Calls      int
	Added      int
	TargetMet  bool
	Warning    string
}

// Refiner runs the quality gate.
type Refiner struct {
	client llm.Client
	cfg    config.PipelineConfig
}

// NewRefiner creates a Refiner.
func NewRefiner(client llm.Client, cfg config.PipelineConfig) *Refiner {
	return &Refiner{client: client, cfg: cfg}
}

// Refine appends questions to result until the thresholds hold or the
// iteration cap is reached. It never removes a question and never fails: a
// failed call adds nothing, and unmet thresholds end up as a warning in the
// outcome and in result.Metadata.
func (r *Refiner) Refine(ctx context.Context, rc *synthesis.Context, result *types.SynthesisResult) Outcome {
	q := r.cfg.Quality
	log := observability.LoggerFromContext(ctx)

	ctx, span := observability.StartSpan(ctx, "interview.quality", "refine",
		attribute.String("search_id", rc.Request.SearchID),
		attribute.Int("initial_questions", result.Questions.Total()))
	defer func() { observability.EndSpan(span, nil) }()

	if result.Questions == nil {
		result.Questions = types.QuestionSet{}
	}

	var out Outcome
	for out.Iterations < q.MaxIterations && !Satisfied(result.Questions, q) {
		if ctx.Err() != nil {
			break
		}
		out.Iterations++

		plan := Plan(result.Questions, q)
		log.Info("refinement iteration",
			slog.Int("iteration", out.Iterations),
			slog.Int("total", result.Questions.Total()),
			slog.Any("plan", plan))

		for _, req := range plan {
			out.Calls++
			added := r.fill(ctx, rc, result.Questions, req)
			out.Added += added
		}
	}

	out.TargetMet = Satisfied(result.Questions, q)
	if !out.TargetMet {
		out.Warning = fmt.Sprintf("question target not met after %d iterations: %d questions (minimum %d)",
			out.Iterations, result.Questions.Total(), q.MinTotal)
		if cats := below(result.Questions, q); len(cats) > 0 {
			out.Warning += fmt.Sprintf(", below %d in: %s", q.MinPerCategory, strings.Join(cats, ", "))
		}
		log.Warn("under-generation", slog.String("warning", out.Warning))
	}

	span.SetAttributes(
		attribute.Int("iterations", out.Iterations),
		attribute.Int("calls", out.Calls),
		attribute.Int("added", out.Added),
		attribute.Bool("target_met", out.TargetMet))

	result.Metadata.RefinementIterations = out.Iterations
	result.Metadata.RefinementCalls = out.Calls
	result.Metadata.QuestionsAdded = out.Added
	result.Metadata.QuestionTargetMet = out.TargetMet
	result.Metadata.Warning = out.Warning
	return out
}

// fill makes one call for req and appends the new, non-duplicate questions to
// set. It returns how many were appended.
func (r *Refiner) fill(ctx context.Context, rc *synthesis.Context, set types.QuestionSet, req Request) int {
	log := observability.LoggerFromContext(ctx).With(
		slog.String("category", string(req.Category)),
		slog.Int("requested", req.Count))

	system, user, err := r.buildPrompt(rc, set[req.Category], req)
	if err != nil {
		log.Error("refinement prompt", slog.String("error", err.Error()))
		return 0
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeouts.Refinement)
	defer cancel()

	start := time.Now()
	text, err := r.client.GenerateJSON(callCtx, llm.Request{System: system, Prompt: user, Tier: llm.TierStandard})
	observability.ObserveLLMCall("refinement", err, time.Since(start))
	if err != nil {
		log.Warn("refinement call failed", slog.String("error", err.Error()))
		return 0
	}

	if verr := schemas.ValidateJSONString(schemas.Refinement, llm.CleanJSONBlock(text)); verr != nil {
		log.Debug("refinement reply does not match schema", slog.String("error", verr.Error()))
	}

	seen := make(map[string]bool, set.Total())
	for _, qs := range set {
		for _, existing := range qs {
			seen[existing.NormalizedText()] = true
		}
	}

	added := 0
	for _, nq := range synthesis.ParseQuestionList(text, req.Category) {
		if added == req.Count {
			break
		}
		key := nq.NormalizedText()
		if seen[key] {
			continue
		}
		seen[key] = true
		set[req.Category] = append(set[req.Category], nq)
		added++
	}

	observability.AddQuestions(string(req.Category), "refinement", added)
	log.Info("refinement call", slog.Int("added", added))
	return added
}

func (r *Refiner) buildPrompt(rc *synthesis.Context, existing []types.Question, req Request) (string, string, error) {
	var sb strings.Builder
	for _, q := range existing {
		sb.WriteString("- " + q.Text + "\n")
	}
	existingList := strings.TrimSpace(sb.String())
	if existingList == "" {
		existingList = "(none)"
	}

	data := map[string]string{
		"Company":   rc.Request.Company,
		"Role":      rc.RoleOrDefault(),
		"Seniority": string(rc.Request.SeniorityOrDefault()),
		"Category":  string(req.Category),
		"Count":     fmt.Sprint(req.Count),
		"Existing":  existingList,
		"Context":   rc.Summary(),
	}
	system, err := prompts.Render(refinementPromptFile, "system", data)
	if err != nil {
		return "", "", err
	}
	user, err := prompts.Render(refinementPromptFile, "instructions", data)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}
