package driven

import (
	"context"
	"time"
)

// VectorIndex stores chunk embeddings and answers nearest-neighbour queries.
//
// Scores are cosine similarity mapped into [0,1] by the index's
// domain.ScoreMapping, identically for every query.
//
// Concurrent searches are always safe. An Upsert batch becomes visible to
// searches atomically: a search observes all of its entries or none.
type VectorIndex interface {
	// Upsert adds or replaces entries. The batch is applied atomically.
	Upsert(ctx context.Context, entries ...IndexEntry) error

	// Search returns up to k entries ordered by score descending.
	// Equal scores are ordered by (UploadedAt, ChunkIndex) ascending.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// DeleteDocument removes every entry belonging to the document.
	DeleteDocument(ctx context.Context, documentID string) error

	// Len returns the number of indexed entries.
	Len() int

	// Dimensions returns the vector size the index accepts.
	Dimensions() int

	// Close releases resources.
	Close() error
}

// IndexEntry is one chunk vector with the metadata needed for ranking.
type IndexEntry struct {
	ChunkID    string
	DocumentID string
	ChunkIndex int
	UploadedAt time.Time
	Vector     []float32
}

// VectorHit represents a single result from vector search.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DocumentID is the chunk's document.
	DocumentID string

	// ChunkIndex is the chunk position within its document.
	ChunkIndex int

	// UploadedAt is the document upload time.
	UploadedAt time.Time

	// Score is the normalised similarity in [0,1].
	Score float64
}
