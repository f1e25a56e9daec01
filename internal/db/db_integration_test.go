//go:build integration

package db

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jonathan/interview-prep/internal/types"
)

// setupTestDB connects to DATABASE_URL when set, otherwise starts a throwaway
// postgres container.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		req := testcontainers.ContainerRequest{
			Image:        "postgres:16",
			Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "interview"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(90 * time.Second),
		}
		c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
		if err != nil {
			t.Skipf("Skipping integration test: cannot start postgres: %v", err)
		}
		t.Cleanup(func() { _ = c.Terminate(ctx) })

		host, err := c.Host(ctx)
		require.NoError(t, err)
		port, err := c.MappedPort(ctx, "5432")
		require.NoError(t, err)
		dsn = "postgres://postgres:postgres@" + host + ":" + port.Port() + "/interview?sslmode=disable"
	}

	db, err := ConnectWithOptions(ctx, dsn, ConnectOptions{MaxElapsed: 30 * time.Second, InitialInterval: 200 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func newSearch(t *testing.T, db *DB) string {
	t.Helper()
	id := "search-" + uuid.NewString()
	require.NoError(t, db.CreateSearch(context.Background(), SearchInput{ID: id, UserID: "u1", Company: "Google", Role: "SRE"}))
	return id
}

func TestSearchLifecycle_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	id := newSearch(t, db)

	s, err := db.GetSearch(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, types.SearchPending, s.Status)
	assert.Equal(t, "SRE", s.Role)
	assert.Empty(t, s.Country)

	require.NoError(t, db.MarkSearchProcessing(ctx, id))
	require.NoError(t, db.UpdateProgress(ctx, id, "data_gathering_start"))
	require.NoError(t, db.CompleteSearch(ctx, id, 72.5, []string{"System design"}))

	s, err = db.GetSearch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.SearchCompleted, s.Status)
	require.NotNil(t, s.OverallFitScore)
	assert.Equal(t, 72.5, *s.OverallFitScore)
	assert.Equal(t, []string{"System design"}, s.PreparationPriorities)
	require.NotNil(t, s.ProgressStep)
	assert.Equal(t, "data_gathering_start", *s.ProgressStep)

	missing, err := db.GetSearch(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, db.FailSearch(ctx, "nope", "boom"))
}

func TestRawDataCheckpoint_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	id := newSearch(t, db)
	raw := types.RawResearchData{CompanyInsights: json.RawMessage(`{"name": "Google"}`)}

	n, err := db.UpdateRawData(ctx, id, raw)
	require.NoError(t, err)
	assert.Zero(t, n, "no artifact row yet")

	require.NoError(t, db.InsertRawData(ctx, id, raw))
	require.NoError(t, db.InsertRawData(ctx, id, raw), "second insert is an upsert")

	n, err = db.UpdateRawData(ctx, id, raw)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	a, err := db.GetResearchArtifact(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, types.ProcessingRawDataSaved, a.ProcessingStatus)
	assert.JSONEq(t, `{"name": "Google"}`, string(a.CompanyInsights))
	assert.Nil(t, a.JobRequirements)
	assert.NotNil(t, a.RawDataSavedAt)
}

func TestConcurrentInsertRawData_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	id := newSearch(t, db)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, db.InsertRawData(ctx, id, types.RawResearchData{}))
		}()
	}
	wg.Wait()

	var count int
	require.NoError(t, db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM research_artifacts WHERE search_id = $1`, id).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSynthesisAndStages_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	id := newSearch(t, db)

	require.NoError(t, db.InsertRawData(ctx, id, types.RawResearchData{CVAnalysis: json.RawMessage(`{"skills": []}`)}))

	result := types.NewSynthesisResult()
	result.Stages = []types.InterviewStage{
		{Name: "Screen", OrderIndex: 1, PreparationTips: []string{"Be brief"}},
		{Name: "Technical", OrderIndex: 2},
	}
	require.NoError(t, db.UpsertSynthesis(ctx, id, result))

	a, err := db.GetResearchArtifact(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.ProcessingComplete, a.ProcessingStatus)
	assert.NotNil(t, a.CVAnalysis, "raw payloads survive the synthesis upsert")

	ids, err := db.ReplaceStages(ctx, id, result.Stages)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	// Replacing again yields fresh ids and no leftover rows.
	ids, err = db.ReplaceStages(ctx, id, result.Stages)
	require.NoError(t, err)

	require.NoError(t, db.InsertQuestions(ctx, []QuestionRow{
		{StageID: ids[1], SearchID: id, Question: types.Question{Text: "Why us?", Category: types.CategoryBehavioral, Difficulty: types.DifficultyEasy, Confidence: 0.9}},
		{StageID: ids[2], SearchID: id, Question: types.Question{Text: "Design a cache", Category: types.CategoryTechnical, Difficulty: types.DifficultyHard, EvaluationCriteria: []string{"tradeoffs"}}},
		{StageID: ids[1], SearchID: id, Question: types.Question{Text: "Tell me about failure", Category: types.CategoryBehavioral, Difficulty: types.DifficultyMedium}},
	}))

	stages, err := db.ListStagesWithQuestions(ctx, id)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, "Screen", stages[0].Name)
	assert.Equal(t, []string{"Be brief"}, stages[0].PreparationTips)
	require.Len(t, stages[0].Questions, 2)
	assert.Equal(t, "Why us?", stages[0].Questions[0].Text)
	assert.Equal(t, "Tell me about failure", stages[0].Questions[1].Text)
	require.Len(t, stages[1].Questions, 1)
	assert.Equal(t, []string{"tradeoffs"}, stages[1].Questions[0].EvaluationCriteria)
}

func TestResumes_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	id, err := db.CreateResume(ctx, "u1", "Ten years of Go")
	require.NoError(t, err)

	text, err := db.GetResumeText(ctx, id, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ten years of Go", text)

	text, err = db.GetResumeText(ctx, id, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, text)

	text, err = db.GetResumeText(ctx, id, "")
	require.NoError(t, err)
	assert.Equal(t, "Ten years of Go", text)
}
