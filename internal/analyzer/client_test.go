package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-prep/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(config.AnalyzerConfig{
		CompanyResearchURL: srv.URL + "/company",
		JobAnalysisURL:     srv.URL + "/job",
		CVAnalysisURL:      srv.URL + "/cv",
		APIKey:             "secret",
	}, srv.Client())
}

func TestCompanyResearch_Success(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/company", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(`{"success": true, "data": {"name": "Google"}}`))
	})

	data, err := client.CompanyResearch(context.Background(), CompanyResearchInput{Company: "Google", SearchID: "s1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "Google"}`, string(data))
	assert.Equal(t, "Google", gotBody["company"])
	assert.Equal(t, "s1", gotBody["searchId"])
	assert.NotContains(t, gotBody, "role")
}

func TestJobAnalysis_SendsEmptyURLList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"urls":[]`)
		_, _ = w.Write([]byte(`{"success": true, "data": {"technical_skills": ["Go"]}}`))
	})

	_, err := client.JobAnalysis(context.Background(), JobAnalysisInput{SearchID: "s1"})
	require.NoError(t, err)
}

func TestPost_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"server error", http.StatusBadGateway, `{"error": "upstream down"}`, "upstream down"},
		{"server error no body", http.StatusInternalServerError, ``, "non-success response"},
		{"success false", http.StatusOK, `{"success": false, "error": "no results"}`, "no results"},
		{"success false no message", http.StatusOK, `{"success": false}`, "analyzer reported failure"},
		{"garbage", http.StatusOK, `<html>`, "invalid response body"},
		{"null data", http.StatusOK, `{"success": true, "data": null}`, "empty data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			data, err := client.CVAnalysis(context.Background(), CVAnalysisInput{CVText: "cv"})
			assert.Nil(t, data)
			var aerr *Error
			require.True(t, errors.As(err, &aerr))
			assert.Equal(t, "cv_analysis", aerr.Source)
			assert.Contains(t, aerr.Error(), tt.message)
		})
	}
}

func TestPost_ContextTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.CompanyResearch(ctx, CompanyResearchInput{Company: "A"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestPost_MissingEndpoint(t *testing.T) {
	client := NewHTTPClient(config.AnalyzerConfig{}, nil)
	_, err := client.JobAnalysis(context.Background(), JobAnalysisInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint not configured")
}
