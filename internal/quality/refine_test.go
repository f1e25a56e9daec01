package quality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-prep/internal/config"
	"github.com/jonathan/interview-prep/internal/llm"
	"github.com/jonathan/interview-prep/internal/synthesis"
	"github.com/jonathan/interview-prep/internal/types"
)

var askPattern = regexp.MustCompile(`Write exactly (\d+) new (\S+) interview questions`)

func testConfig() config.PipelineConfig {
	return config.PipelineConfig{
		Timeouts:          config.TimeoutConfig{Refinement: time.Second},
		Quality:           defaultQuality(),
		Relevance:         config.RelevanceConfig{MaxKeywords: 120, HighCount: 3, SupportingCount: 2},
		SectionCharBudget: 4000,
	}
}

func testContext() *synthesis.Context {
	return synthesis.NewContext(types.ResearchRequest{SearchID: "s1", Company: "Google", Role: "SRE"}, types.RawResearchData{}, nil, 4000)
}

// generator answers every refinement call with exactly the requested number of
// fresh questions.
func generator(calls *atomic.Int32) *MockLLMClient {
	return &MockLLMClient{
		GenerateJSONFunc: func(ctx context.Context, req llm.Request) (string, error) {
			n := calls.Add(1)
			m := askPattern.FindStringSubmatch(req.Prompt)
			if m == nil {
				return "", errors.New("unexpected prompt")
			}
			count, _ := strconv.Atoi(m[1])
			var items []map[string]any
			for i := 0; i < count; i++ {
				items = append(items, map[string]any{"question": fmt.Sprintf("%s call %d item %d", m[2], n, i)})
			}
			b, _ := json.Marshal(map[string]any{"questions": items})
			return string(b), nil
		},
	}
}

func resultWith(counts map[types.Category]int) *types.SynthesisResult {
	r := types.NewSynthesisResult()
	r.Questions = setWithCounts(counts)
	return r
}

func TestRefine_AlreadySatisfiedMakesNoCalls(t *testing.T) {
	counts := map[types.Category]int{}
	for _, c := range types.AllCategories() {
		counts[c] = 5
	}
	var calls atomic.Int32
	refiner := NewRefiner(generator(&calls), testConfig())

	out := refiner.Refine(context.Background(), testContext(), resultWith(counts))

	assert.Equal(t, Outcome{TargetMet: true}, out)
	assert.Zero(t, calls.Load())
}

func TestRefine_ConvergesFromUnevenSet(t *testing.T) {
	var calls atomic.Int32
	refiner := NewRefiner(generator(&calls), testConfig())
	result := resultWith(map[types.Category]int{types.CategoryBehavioral: 5})

	out := refiner.Refine(context.Background(), testContext(), result)

	assert.True(t, out.TargetMet)
	assert.Equal(t, 1, out.Iterations)
	assert.Equal(t, 6, out.Calls)
	assert.Equal(t, 30, out.Added)
	assert.Equal(t, 35, result.Questions.Total())
	for _, c := range types.AllCategories() {
		assert.GreaterOrEqual(t, result.Questions.Count(c), 3, c)
		for _, q := range result.Questions[c] {
			assert.Equal(t, c, q.Category)
		}
	}
	assert.Equal(t, 1, result.Metadata.RefinementIterations)
	assert.Equal(t, 30, result.Metadata.QuestionsAdded)
	assert.True(t, result.Metadata.QuestionTargetMet)
	assert.Empty(t, result.Metadata.Warning)
}

func TestRefine_FailedCallsAddNothingAndStopAtCap(t *testing.T) {
	var calls atomic.Int32
	client := &MockLLMClient{
		GenerateJSONFunc: func(ctx context.Context, req llm.Request) (string, error) {
			calls.Add(1)
			return "", errors.New("quota exceeded")
		},
	}
	refiner := NewRefiner(client, testConfig())
	result := resultWith(map[types.Category]int{types.CategoryBehavioral: 5})

	out := refiner.Refine(context.Background(), testContext(), result)

	assert.False(t, out.TargetMet)
	assert.Equal(t, 2, out.Iterations)
	assert.Equal(t, 12, out.Calls)
	assert.EqualValues(t, 12, calls.Load())
	assert.Zero(t, out.Added)
	assert.Equal(t, 5, result.Questions.Total(), "existing questions are kept")
	assert.Contains(t, out.Warning, "question target not met after 2 iterations: 5 questions (minimum 30)")
	assert.Contains(t, out.Warning, "cultural-fit")
	assert.Equal(t, out.Warning, result.Metadata.Warning)
}

func TestRefine_DropsDuplicatesAndExtras(t *testing.T) {
	cfg := testConfig()
	cfg.Quality.MaxIterations = 1
	client := &MockLLMClient{
		GenerateJSONFunc: func(ctx context.Context, req llm.Request) (string, error) {
			return `{"questions": [
				{"question": "behavioral question 0?"},
				{"question": "Brand new one"},
				{"question": "brand new one"},
				{"question": "Second new one"},
				{"question": "Third new one"},
				{"question": "Fourth new one"},
				{"question": "Fifth new one"},
				{"question": "Sixth new one"}
			]}`, nil
		},
	}
	refiner := NewRefiner(client, cfg)
	result := resultWith(map[types.Category]int{types.CategoryBehavioral: 1})

	refiner.Refine(context.Background(), testContext(), result)

	behavioral := result.Questions[types.CategoryBehavioral]
	// target 5, one existing: four requested, duplicates skipped.
	require.Len(t, behavioral, 5)
	assert.Equal(t, "Brand new one", behavioral[1].Text)
	assert.Equal(t, "Fourth new one", behavioral[4].Text)

	// Every other category got the same reply; cross-category duplicates are skipped too.
	assert.Len(t, result.Questions[types.CategoryTechnical], 2)
	seen := map[string]bool{}
	for _, qs := range result.Questions {
		for _, q := range qs {
			assert.False(t, seen[q.NormalizedText()], q.Text)
			seen[q.NormalizedText()] = true
		}
	}
}

func TestRefine_PromptCarriesExistingQuestionsAndTier(t *testing.T) {
	cfg := testConfig()
	cfg.Quality.MaxIterations = 1
	var requests []llm.Request
	client := &MockLLMClient{
		GenerateJSONFunc: func(ctx context.Context, req llm.Request) (string, error) {
			requests = append(requests, req)
			return `{"questions": []}`, nil
		},
	}
	refiner := NewRefiner(client, cfg)
	counts := map[types.Category]int{}
	for _, c := range types.AllCategories() {
		counts[c] = 5
	}
	counts[types.CategoryTechnical] = 2

	refiner.Refine(context.Background(), testContext(), resultWith(counts))

	require.Len(t, requests, 1)
	assert.Equal(t, llm.TierStandard, requests[0].Tier)
	assert.Contains(t, requests[0].Prompt, "Write exactly 3 new technical interview questions for the role of SRE at Google")
	assert.Contains(t, requests[0].Prompt, "- technical question 1")
	assert.Contains(t, requests[0].System, "Google")
}

func TestRefine_CancelledContextStops(t *testing.T) {
	var calls atomic.Int32
	refiner := NewRefiner(generator(&calls), testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := refiner.Refine(ctx, testContext(), resultWith(nil))

	assert.Zero(t, out.Iterations)
	assert.Zero(t, calls.Load())
	assert.False(t, out.TargetMet)
}
