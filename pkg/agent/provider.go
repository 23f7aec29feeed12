package agent

import (
	"context"
	"fmt"
)

// Provider is a plain-text completion backend. The engine speaks a JSON plan
// protocol over free text, so providers never use native tool-calling.
type Provider interface {
	// Complete returns one free-text completion for the request.
	Complete(ctx context.Context, request CompletionRequest) (string, error)

	// Name returns the provider name.
	Name() string
}

// NewProvider creates a provider by name. An empty API key returns nil with
// no error: the engine treats a nil provider as "model unavailable" and
// degrades to its fixed apology.
func NewProvider(name, apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, nil
	}
	switch name {
	case "anthropic":
		return NewAnthropicProvider(apiKey), nil
	case "openai":
		return NewOpenAIProvider(apiKey), nil
	case "gemini":
		return NewGeminiProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}
