// Package nlu asks a language model to turn an utterance into a raw intent
// object. It does not validate the object; that is the intent package's job.
package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/user/chatcal/internal/temporal"
	"github.com/user/chatcal/pkg/llm"
)

// ErrParseFailure marks every way the model can fail to give back an object.
var ErrParseFailure = errors.New("intent parse failure")

// Parser implements the dispatcher's intent parser over an llm.Provider.
type Parser struct {
	provider llm.Provider
	budget   *Budget
	logger   *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithBudget truncates utterances that exceed the budget before they are sent.
func WithBudget(b *Budget) Option {
	return func(p *Parser) { p.budget = b }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// New creates a Parser. The provider should be configured for JSON output.
func New(provider llm.Provider, opts ...Option) *Parser {
	p := &Parser{provider: provider, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse sends the utterance with its date context and decodes the answer.
// Every failure wraps ErrParseFailure.
func (p *Parser) Parse(ctx context.Context, utterance string, today temporal.Today) (map[string]any, error) {
	if text, cut := p.budget.Fit(utterance); cut {
		p.logger.Warn("utterance truncated to token budget", "tokens", p.budget.max)
		utterance = text
	}

	resp, err := p.provider.Complete(ctx, []llm.Message{
		llm.System(SystemPrompt),
		llm.User(UserPrompt(today, utterance)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailure, err)
	}

	p.logger.Debug("intent model answered",
		"finish_reason", resp.FinishReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)

	return decode(resp.Content)
}

// decode reads a single JSON object out of the model's answer, tolerating a
// surrounding markdown code fence.
func decode(content string) (map[string]any, error) {
	content = stripFence(strings.TrimSpace(content))
	if content == "" {
		return nil, fmt.Errorf("%w: empty response", ErrParseFailure)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %w", ErrParseFailure, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: null object", ErrParseFailure)
	}
	return raw, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
