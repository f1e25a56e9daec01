package synthesis

import (
	"context"

	"github.com/jonathan/interview-prep/internal/llm"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateJSONFunc func(ctx context.Context, req llm.Request) (string, error)
	GetModelFunc     func(tier llm.ModelTier) string
	CloseFunc        func() error
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, req)
	}
	return `{}`, nil
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

func (m *MockLLMClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
