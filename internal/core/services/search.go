package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService finds the chunks most similar to a query.
type RetrievalService struct {
	embedder    driven.EmbeddingService
	vectorIndex driven.VectorIndex
	docStore    driven.DocumentStore
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	vectorIndex driven.VectorIndex,
	docStore driven.DocumentStore,
) *RetrievalService {
	return &RetrievalService{
		embedder:    embedder,
		vectorIndex: vectorIndex,
		docStore:    docStore,
	}
}

// Retrieve embeds the query, searches the index, drops hits below
// opts.MinScore and hydrates the rest from the document store.
//
// Embedding, index and store failures are reported as
// domain.ErrRetrievalUnavailable. Hits whose chunk or document no longer
// exists are skipped.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query string, opts domain.RetrieveOptions,
) ([]domain.SourceReference, error) {
	logger.Section("Retrieval")

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("retrieve: %w", domain.ErrEmptyInput)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	logger.Debug("Query: %q, top_k: %d, min_score: %.3f", query, topK, opts.MinScore)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrRetrievalUnavailable, err)
	}

	hits, err := s.vectorIndex.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %w", domain.ErrRetrievalUnavailable, err)
	}
	logger.Debug("Vector search returned %d hits", len(hits))

	sources := make([]domain.SourceReference, 0, len(hits))
	docs := make(map[string]*domain.Document)
	for _, hit := range hits {
		if hit.Score < opts.MinScore {
			continue
		}

		chunk, err := s.docStore.GetChunk(ctx, hit.ChunkID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("Skipping vanished chunk %s", hit.ChunkID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: load chunk %s: %w", domain.ErrRetrievalUnavailable, hit.ChunkID, err)
		}

		doc, seen := docs[chunk.DocumentID]
		if !seen {
			doc, err = s.docStore.GetDocument(ctx, chunk.DocumentID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: load document %s: %w",
					domain.ErrRetrievalUnavailable, chunk.DocumentID, err)
			}
			docs[chunk.DocumentID] = doc
		}
		if doc == nil {
			logger.Debug("Skipping chunk %s of vanished document %s", chunk.ID, chunk.DocumentID)
			continue
		}

		sources = append(sources, domain.SourceReference{
			ChunkID:    chunk.ID,
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			ChunkIndex: chunk.Index,
			UploadedAt: doc.UploadedAt,
			Score:      hit.Score,
			Content:    chunk.Content,
		})
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sourceBefore(sources[i], sources[j])
	})

	logger.Info("Retrieved %d sources (of %d hits)", len(sources), len(hits))
	return sources, nil
}

// sourceBefore orders by score descending, then upload time, chunk index
// and chunk id ascending.
func sourceBefore(a, b domain.SourceReference) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.UploadedAt.Equal(b.UploadedAt) {
		return a.UploadedAt.Before(b.UploadedAt)
	}
	if a.ChunkIndex != b.ChunkIndex {
		return a.ChunkIndex < b.ChunkIndex
	}
	return a.ChunkID < b.ChunkID
}
