// Package llm wraps the generative model provider behind a small client interface
// and carries the per-tier model selection used by synthesis and refinement.
package llm

// ModelTier represents the capability level of a model
type ModelTier string

const (
	// TierLite is for short, cheap calls
	TierLite ModelTier = "lite"
	// TierStandard is used for follow-up question generation
	TierStandard ModelTier = "standard"
	// TierAdvanced is used for the large-context synthesis call
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// Config holds the model configuration for a client
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	MaxTokens   map[ModelTier]int32
	Temperature float32
}

// DefaultConfig returns the default Gemini configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		MaxTokens: map[ModelTier]int32{
			TierLite:     4096,
			TierStandard: 8192,
			TierAdvanced: 32768,
		},
		Temperature: 0.4,
	}
}

// GetModel returns the model name for a given tier, falling back to standard then lite
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// GetMaxTokens returns the output token ceiling for a tier, 0 meaning provider default
func (c *Config) GetMaxTokens(tier ModelTier) int32 {
	return c.MaxTokens[tier]
}

// WithModel returns a copy of the config with tier bound to model and an optional
// output token ceiling (ignored when <= 0).
func (c *Config) WithModel(tier ModelTier, model string, maxTokens int32) *Config {
	next := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelTier]string, len(c.Models)+1),
		MaxTokens:   make(map[ModelTier]int32, len(c.MaxTokens)+1),
		Temperature: c.Temperature,
	}
	for k, v := range c.Models {
		next.Models[k] = v
	}
	for k, v := range c.MaxTokens {
		next.MaxTokens[k] = v
	}
	if model != "" {
		next.Models[tier] = model
	}
	if maxTokens > 0 {
		next.MaxTokens[tier] = maxTokens
	}
	return next
}
