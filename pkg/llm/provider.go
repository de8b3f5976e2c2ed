package llm

import (
	"context"
	"time"
)

// Provider defines the interface for interacting with LLM backends.
// Implementations handle request formatting, authentication and response
// parsing for their protocol.
type Provider interface {
	// Complete sends a chat completion request and returns the full response.
	Complete(ctx context.Context, messages []Message) (*Response, error)
}

// Format selects the shape the model is asked to answer in.
type Format string

const (
	FormatText Format = ""
	FormatJSON Format = "json_object"
)

// Config holds common configuration for LLM providers.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	// Temperature is sent only when non-nil; nil leaves the backend default.
	Temperature *float32
	Format      Format
	Timeout     time.Duration
}
