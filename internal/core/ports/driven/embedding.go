// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService maps text to fixed-size vectors. Equal text yields an equal
// vector, so a chunk and a query embedded by the same model are comparable.
// Storing and searching vectors is the VectorIndex's job.
type EmbeddingService interface {
	// Embed returns the vector for text. Empty text is domain.ErrEmptyInput.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order. Implementations
	// may split texts into several provider requests.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the length of every returned vector.
	Dimensions() int

	// ModelName is the provider's name for the model.
	ModelName() string

	// Ping makes the cheapest request that proves the model can be used.
	Ping(ctx context.Context) error

	Close() error
}
