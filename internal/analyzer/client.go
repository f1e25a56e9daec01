// Package analyzer calls the three upstream analyzer services (company research,
// job analysis, CV analysis) over HTTP. Each returns an opaque JSON payload.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/interview-prep/internal/config"
)

// maxResponseBytes bounds a single analyzer reply.
const maxResponseBytes = 8 << 20

// CompanyResearchInput is the company-research request body.
type CompanyResearchInput struct {
	Company  string `json:"company"`
	Role     string `json:"role,omitempty"`
	Country  string `json:"country,omitempty"`
	SearchID string `json:"searchId"`
}

// JobAnalysisInput is the job-analysis request body.
type JobAnalysisInput struct {
	URLs     []string `json:"urls"`
	SearchID string   `json:"searchId"`
	Company  string   `json:"company,omitempty"`
	Role     string   `json:"role,omitempty"`
}

// CVAnalysisInput is the cv-analysis request body.
type CVAnalysisInput struct {
	CVText string `json:"cvText"`
	UserID string `json:"userId,omitempty"`
}

// Analyzers is the set of upstream calls the collector fans out to.
type Analyzers interface {
	CompanyResearch(ctx context.Context, in CompanyResearchInput) (json.RawMessage, error)
	JobAnalysis(ctx context.Context, in JobAnalysisInput) (json.RawMessage, error)
	CVAnalysis(ctx context.Context, in CVAnalysisInput) (json.RawMessage, error)
}

// Error describes a failed analyzer call.
type Error struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s analyzer: %s", e.Source, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// envelope is the response shape shared by all analyzers.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// HTTPClient implements Analyzers against configured endpoints.
type HTTPClient struct {
	urls   config.AnalyzerConfig
	client *http.Client
}

// NewHTTPClient creates a client. A nil httpClient uses one without a global
// timeout; callers bound each call through its context.
func NewHTTPClient(cfg config.AnalyzerConfig, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPClient{urls: cfg, client: httpClient}
}

// CompanyResearch calls the company-research service.
func (c *HTTPClient) CompanyResearch(ctx context.Context, in CompanyResearchInput) (json.RawMessage, error) {
	return c.post(ctx, "company_research", c.urls.CompanyResearchURL, in)
}

// JobAnalysis calls the job-analysis service.
func (c *HTTPClient) JobAnalysis(ctx context.Context, in JobAnalysisInput) (json.RawMessage, error) {
	if in.URLs == nil {
		in.URLs = []string{}
	}
	return c.post(ctx, "job_analysis", c.urls.JobAnalysisURL, in)
}

// CVAnalysis calls the cv-analysis service.
func (c *HTTPClient) CVAnalysis(ctx context.Context, in CVAnalysisInput) (json.RawMessage, error) {
	return c.post(ctx, "cv_analysis", c.urls.CVAnalysisURL, in)
}

func (c *HTTPClient) post(ctx context.Context, source, endpoint string, body any) (json.RawMessage, error) {
	if endpoint == "" {
		return nil, &Error{Source: source, Message: "endpoint not configured"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Source: source, Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Source: source, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.urls.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.urls.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Source: source, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Source: source, StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(env.Error)
		if msg == "" {
			msg = "non-success response"
		}
		return nil, &Error{Source: source, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &Error{Source: source, StatusCode: resp.StatusCode, Message: "invalid response body", Cause: decodeErr}
	}
	if !env.Success {
		msg := strings.TrimSpace(env.Error)
		if msg == "" {
			msg = "analyzer reported failure"
		}
		return nil, &Error{Source: source, StatusCode: resp.StatusCode, Message: msg}
	}
	if len(bytes.TrimSpace(env.Data)) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return nil, &Error{Source: source, StatusCode: resp.StatusCode, Message: "empty data"}
	}
	return env.Data, nil
}
