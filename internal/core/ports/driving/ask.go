package driving

import (
	"context"
	"iter"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// AnswerStream is a finite, single-use sequence of answer events.
type AnswerStream = iter.Seq[domain.AnswerEvent]

// AskService answers questions grounded in ingested documents.
type AskService interface {
	// Ask validates the request, persists the question and returns the answer
	// as an ordered event sequence ending in a done event.
	//
	// Stopping the iteration early is treated as a consumer disconnect:
	// generation stops and no answer is persisted.
	Ask(ctx context.Context, req domain.AskRequest) (AnswerStream, error)
}

// ModelRegistry lists and resolves generation models.
type ModelRegistry interface {
	// Available returns the offered models grouped by provider.
	Available() map[domain.AIProvider][]string

	// Resolve parses "provider:name". An empty string resolves to the default model.
	// Returns domain.ErrUnknownModel for models that are not offered.
	Resolve(model string) (domain.ModelRef, error)

	// Default returns the default model.
	Default() domain.ModelRef
}
