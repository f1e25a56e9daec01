package persist

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/interview-prep/internal/db"
	"github.com/jonathan/interview-prep/internal/types"
)

// memoryStore is an in-memory RawStore and ResultStore.
type memoryStore struct {
	mu sync.Mutex

	artifacts map[string]types.RawResearchData
	results   map[string]*types.SynthesisResult
	stages    map[string]map[int]uuid.UUID
	questions []db.QuestionRow
	completed map[string]float64

	updates int
	inserts int
	calls   []string

	updateErr   error
	insertErr   error
	upsertErr   error
	stagesErr   error
	questionErr error
	completeErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		artifacts: map[string]types.RawResearchData{},
		results:   map[string]*types.SynthesisResult{},
		stages:    map[string]map[int]uuid.UUID{},
		completed: map[string]float64{},
	}
}

func (m *memoryStore) UpdateRawData(ctx context.Context, searchID string, raw types.RawResearchData) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.updateErr != nil {
		return 0, m.updateErr
	}
	if _, ok := m.artifacts[searchID]; !ok {
		return 0, nil
	}
	m.artifacts[searchID] = raw
	return 1, nil
}

func (m *memoryStore) InsertRawData(ctx context.Context, searchID string, raw types.RawResearchData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.insertErr != nil {
		return m.insertErr
	}
	m.artifacts[searchID] = raw
	return nil
}

func (m *memoryStore) UpsertSynthesis(ctx context.Context, searchID string, result *types.SynthesisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, StepArtifact)
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.results[searchID] = result
	return nil
}

func (m *memoryStore) ReplaceStages(ctx context.Context, searchID string, stages []types.InterviewStage) (map[int]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, StepStages)
	if m.stagesErr != nil {
		return nil, m.stagesErr
	}
	ids := make(map[int]uuid.UUID, len(stages))
	for _, st := range stages {
		ids[st.OrderIndex] = uuid.New()
	}
	m.stages[searchID] = ids
	return ids, nil
}

func (m *memoryStore) InsertQuestions(ctx context.Context, rows []db.QuestionRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, StepQuestions)
	if m.questionErr != nil {
		return m.questionErr
	}
	m.questions = append(m.questions, rows...)
	return nil
}

func (m *memoryStore) CompleteSearch(ctx context.Context, searchID string, fitScore float64, priorities []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, StepSearch)
	if m.completeErr != nil {
		return m.completeErr
	}
	m.completed[searchID] = fitScore
	return nil
}
