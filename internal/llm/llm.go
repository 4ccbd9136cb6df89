// Package llm adapts remote chat completion services to a single provider-neutral interface.
package llm

import (
	"context"
	"fmt"
	"net/http"
)

// Provider constants for completion service selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds completion client configuration.
type Config struct {
	Provider   string       // "openai" or "anthropic"
	APIKey     string       // Required
	OrgID      string       // Optional: OpenAI organization used for routing and billing
	BaseURL    string       // Optional: custom API endpoint
	Model      string       // Model name; the provider default is used when empty
	MaxRetries int          // Retries performed by the provider SDK
	HTTPClient *http.Client // Optional: replaces the SDK's default client
}

// Message is a single conversation entry sent to the completion service.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// Request is one completion call.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature *float64
}

// Reply is the assistant message produced by a completion call.
type Reply struct {
	Content          string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// Completer maps a conversation to the next assistant message. Failures are classified; see KindOf.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Reply, error)
	Model() string
}

// New creates a Completer for cfg.Provider. Defaults to OpenAI if no provider is specified.
func New(cfg Config) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	switch cfg.Provider {
	case ProviderOpenAI, "":
		return newOpenAICompleter(cfg), nil
	case ProviderAnthropic:
		return newAnthropicCompleter(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.Provider)
	}
}

// DefaultModel returns the model used for provider when none is configured
func DefaultModel(provider string) string {
	if provider == ProviderAnthropic {
		return defaultAnthropicModel
	}
	return defaultOpenAIModel
}

// Float is a helper to build an optional temperature
func Float(v float64) *float64 {
	return &v
}
