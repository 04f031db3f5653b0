// Package tokens estimates model token counts for context budgeting.
package tokens

import (
	"log/slog"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
)

// DefaultEncoding matches the tokenizer of the chat models in use.
const DefaultEncoding = "cl100k_base"

// Ensure Counter implements the interface.
var _ driven.TokenCounter = (*Counter)(nil)

// Counter counts tokens with tiktoken, falling back to a rune count
// when the encoding cannot be loaded (offline environments).
type Counter struct {
	encoder *tiktoken.Tiktoken
}

// NewCounter creates a counter for the given encoding name. An empty
// name selects DefaultEncoding.
func NewCounter(encoding string, logger *slog.Logger) *Counter {
	if logger == nil {
		logger = slog.Default()
	}
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, using rune fallback",
			"encoding", encoding, "error", err)
		return &Counter{}
	}
	return &Counter{encoder: enc}
}

// CountTokens returns the token count of text, or the rune count when
// the encoder is unavailable.
func (c *Counter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if c.encoder == nil {
		return utf8.RuneCountInString(text)
	}
	return len(c.encoder.Encode(text, nil, nil))
}
