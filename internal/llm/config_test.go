package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", config.GetModel(TierLite))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TierStandard))
	assert.Equal(t, "gemini-2.5-pro", config.GetModel(TierAdvanced))
	assert.Equal(t, int32(32768), config.GetMaxTokens(TierAdvanced))
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderGemini,
		Models:   map[ModelTier]string{TierLite: "fallback-model"},
	}
	assert.Equal(t, "fallback-model", config.GetModel("unknown"))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	config := &Config{Provider: ProviderGemini, Models: map[ModelTier]string{}}
	assert.Equal(t, "", config.GetModel(TierAdvanced))
	assert.Equal(t, int32(0), config.GetMaxTokens(TierAdvanced))
}

func TestWithModel_CopiesAndOverrides(t *testing.T) {
	base := DefaultConfig()
	next := base.WithModel(TierAdvanced, "custom-pro", 1000)

	assert.Equal(t, "custom-pro", next.GetModel(TierAdvanced))
	assert.Equal(t, int32(1000), next.GetMaxTokens(TierAdvanced))
	assert.Equal(t, "gemini-2.5-pro", base.GetModel(TierAdvanced), "original must not change")
	assert.Equal(t, base.Temperature, next.Temperature)
}

func TestWithModel_EmptyValuesKeepExisting(t *testing.T) {
	next := DefaultConfig().WithModel(TierStandard, "", 0)
	assert.Equal(t, "gemini-2.5-flash", next.GetModel(TierStandard))
	assert.Equal(t, int32(8192), next.GetMaxTokens(TierStandard))
}

func TestNewClient_RejectsUnknownProvider(t *testing.T) {
	_, err := NewClient(t.Context(), &Config{Provider: "other"}, "key")
	assert.Error(t, err)
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(t.Context(), DefaultConfig(), "")
	assert.Error(t, err)
}
