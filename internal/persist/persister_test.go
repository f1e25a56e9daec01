package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-prep/internal/types"
)

func fullResult() *types.SynthesisResult {
	r := types.NewSynthesisResult()
	r.Stages = []types.InterviewStage{
		{Name: "Recruiter", OrderIndex: 1},
		{Name: "Technical", OrderIndex: 2},
		{Name: "Onsite", OrderIndex: 3},
		{Name: "Leadership", OrderIndex: 4},
	}
	r.Questions = oneOfEach()
	r.Comparison.OverallFitScore = 81
	r.Guidance.Priorities = []string{"Distributed systems"}
	return r
}

func TestPersist_HappyPath(t *testing.T) {
	store := newMemoryStore()
	p := NewPersister(store, time.Second)

	summary, err := p.Persist(context.Background(), "s1", fullResult())
	require.NoError(t, err)

	assert.Equal(t, Summary{Stages: 4, Questions: 7}, summary)
	assert.Equal(t, []string{StepArtifact, StepStages, StepQuestions, StepSearch}, store.calls)
	assert.Equal(t, 81.0, store.completed["s1"])

	valid := map[uuid.UUID]bool{}
	for _, id := range store.stages["s1"] {
		valid[id] = true
	}
	for _, q := range store.questions {
		assert.True(t, valid[q.StageID], q.Text)
	}
}

func TestPersist_MappingErrorBeforeQuestions(t *testing.T) {
	store := newMemoryStore()
	p := NewPersister(store, time.Second)
	result := fullResult()
	result.Stages = result.Stages[:1]

	_, err := p.Persist(context.Background(), "s1", result)

	var me *MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, []string{StepArtifact, StepStages}, store.calls)
	assert.Empty(t, store.questions)
	assert.NotContains(t, store.completed, "s1")
}

func TestPersist_WriteFailuresAbort(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		step   string
		inject func(*memoryStore)
		calls  []string
	}{
		{StepArtifact, func(m *memoryStore) { m.upsertErr = boom }, []string{StepArtifact}},
		{StepStages, func(m *memoryStore) { m.stagesErr = boom }, []string{StepArtifact, StepStages}},
		{StepQuestions, func(m *memoryStore) { m.questionErr = boom }, []string{StepArtifact, StepStages, StepQuestions}},
		{StepSearch, func(m *memoryStore) { m.completeErr = boom }, []string{StepArtifact, StepStages, StepQuestions, StepSearch}},
	}
	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			store := newMemoryStore()
			tt.inject(store)

			_, err := NewPersister(store, time.Second).Persist(context.Background(), "s1", fullResult())

			var we *WriteError
			require.ErrorAs(t, err, &we)
			assert.Equal(t, tt.step, we.Step)
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, tt.calls, store.calls)
		})
	}
}

func TestPersist_EmptyResult(t *testing.T) {
	store := newMemoryStore()

	summary, err := NewPersister(store, time.Second).Persist(context.Background(), "s1", types.NewSynthesisResult())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
	assert.Contains(t, store.completed, "s1")
}
