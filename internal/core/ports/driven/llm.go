// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"
	"iter"
)

// LLMService streams answers from a generative model.
//
// Implementations may include:
//   - OpenAI (chat completions)
//   - Anthropic (messages)
//   - Ollama (local models)
type LLMService interface {
	// ChatStream starts a streaming chat completion.
	//
	// The returned sequence yields text fragments in generation order. It is
	// finite and may be ranged over once. A non-nil error is yielded at most
	// once and ends the sequence. Stopping the iteration early, or cancelling
	// ctx, aborts the underlying request.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions) iter.Seq2[string, error]

	// Provider returns the provider identifier (e.g., "ollama").
	Provider() string

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// LLMProvider resolves generation models by name.
// The answer pipeline uses it to honour per-request model selection.
type LLMProvider interface {
	// LLM returns a service for the given provider and model.
	LLM(provider, model string) (LLMService, error)
}
