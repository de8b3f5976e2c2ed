package nlu

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer is the part of *tiktoken.Tiktoken the budget needs.
type Tokenizer interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

// Budget caps how many tokens of an utterance reach the model.
type Budget struct {
	tokenizer Tokenizer
	max       int
}

// NewBudget loads the tokenizer for model, falling back to cl100k_base for
// models tiktoken does not know.
func NewBudget(model string, maxTokens int) (*Budget, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return NewBudgetWithTokenizer(enc, maxTokens), nil
}

// NewBudgetWithTokenizer builds a budget over an already loaded tokenizer.
func NewBudgetWithTokenizer(t Tokenizer, maxTokens int) *Budget {
	return &Budget{tokenizer: t, max: maxTokens}
}

// Count returns the number of tokens in text.
func (b *Budget) Count(text string) int {
	return len(b.tokenizer.Encode(text, nil, nil))
}

// Fit returns text unchanged when it is within the budget, otherwise its
// first max tokens. truncated reports whether anything was cut.
func (b *Budget) Fit(text string) (fitted string, truncated bool) {
	if b == nil || b.max <= 0 {
		return text, false
	}
	tokens := b.tokenizer.Encode(text, nil, nil)
	if len(tokens) <= b.max {
		return text, false
	}
	// A multi-byte rune can straddle the cut.
	return strings.ToValidUTF8(b.tokenizer.Decode(tokens[:b.max]), ""), true
}
