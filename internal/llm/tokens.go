package llm

import (
	"log/slog"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding is used for every model; Gemini has no public BPE table and
// cl100k_base tracks it closely enough for prompt budgeting.
const fallbackEncoding = "cl100k_base"

// TokenCounter estimates prompt sizes. The zero value is ready to use.
type TokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// Count returns the token count of text. When the encoding table cannot be
// loaded it falls back to a four-characters-per-token estimate.
func (c *TokenCounter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			slog.Debug("tiktoken encoding unavailable, using estimate", slog.Any("error", err))
			return
		}
		c.enc = enc
	})
	if c.enc == nil {
		return EstimateTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// EstimateTokens is the character-based approximation used without an encoding.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
