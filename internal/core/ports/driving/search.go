package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// RetrievalService finds document chunks relevant to a query.
type RetrievalService interface {
	// Retrieve embeds the query, searches the vector index and returns the
	// sources scoring at least opts.MinScore, best first. An empty result is
	// not an error.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.SourceReference, error)
}
