// Package memory provides an exact in-process vector index.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	meta driven.IndexEntry
	unit []float32
}

// Index scores every stored vector against the query.
// Writers hold the lock only to swap in prepared entries.
type Index struct {
	mu      sync.RWMutex
	dims    int
	mapping domain.ScoreMapping
	entries map[string]entry
	byDoc   map[string]map[string]struct{}
}

// New creates an empty index. A zero dims adopts the size of the first upsert.
func New(dims int, mapping domain.ScoreMapping) *Index {
	if !mapping.IsValid() {
		mapping = domain.ScoreMappingAffine
	}
	return &Index{
		dims:    dims,
		mapping: mapping,
		entries: make(map[string]entry),
		byDoc:   make(map[string]map[string]struct{}),
	}
}

// Upsert adds or replaces entries. Every entry is validated before any is applied.
func (idx *Index) Upsert(ctx context.Context, entries ...driven.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	dims := idx.Dimensions()
	if dims == 0 {
		dims = len(entries[0].Vector)
	}

	prepared := make([]entry, 0, len(entries))
	for _, e := range entries {
		if err := vector.CheckDimensions(dims, e.Vector); err != nil {
			return err
		}
		unit, err := vector.Normalize(e.Vector)
		if err != nil {
			return err
		}
		meta := e
		meta.Vector = nil
		prepared = append(prepared, entry{meta: meta, unit: unit})
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dims == 0 {
		idx.dims = dims
	} else if idx.dims != dims {
		// Another writer fixed the size first.
		return vector.CheckDimensions(idx.dims, entries[0].Vector)
	}

	for _, e := range prepared {
		idx.remove(e.meta.ChunkID)
		idx.entries[e.meta.ChunkID] = e
		doc, ok := idx.byDoc[e.meta.DocumentID]
		if !ok {
			doc = make(map[string]struct{})
			idx.byDoc[e.meta.DocumentID] = doc
		}
		doc[e.meta.ChunkID] = struct{}{}
	}
	return nil
}

// remove deletes a chunk. Caller holds the write lock.
func (idx *Index) remove(chunkID string) {
	old, ok := idx.entries[chunkID]
	if !ok {
		return
	}
	delete(idx.entries, chunkID)
	if doc, ok := idx.byDoc[old.meta.DocumentID]; ok {
		delete(doc, chunkID)
		if len(doc) == 0 {
			delete(idx.byDoc, old.meta.DocumentID)
		}
	}
}

// Search returns the k highest scoring entries.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.dims == 0 {
		return []driven.VectorHit{}, nil
	}
	if err := vector.CheckDimensions(idx.dims, query); err != nil {
		return nil, err
	}
	unit, err := vector.Normalize(query)
	if err != nil {
		return nil, err
	}

	top := vector.NewTopK(k)
	for _, e := range idx.entries {
		top.Offer(hit(e.meta, idx.mapping.Apply(vector.Dot(unit, e.unit))))
	}
	return top.Results(), nil
}

// DeleteDocument removes every entry of the document.
func (idx *Index) DeleteDocument(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for chunkID := range idx.byDoc[documentID] {
		delete(idx.entries, chunkID)
	}
	delete(idx.byDoc, documentID)
	return nil
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Dimensions returns the accepted vector size, or zero before the first upsert.
func (idx *Index) Dimensions() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dims
}

// Close is a no-op.
func (idx *Index) Close() error {
	return nil
}

func hit(meta driven.IndexEntry, score float64) driven.VectorHit {
	return driven.VectorHit{
		ChunkID:    meta.ChunkID,
		DocumentID: meta.DocumentID,
		ChunkIndex: meta.ChunkIndex,
		UploadedAt: meta.UploadedAt,
		Score:      score,
	}
}
