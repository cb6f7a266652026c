package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
	byChunkID map[string]chunkRef
}

type chunkRef struct {
	documentID string
	pos        int
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
		byChunkID: make(map[string]chunkRef),
	}
}

// SaveDocument stores a document with its chunks, replacing any previous version.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Index < stored[j].Index })

	d := *doc
	d.ChunkCount = len(stored)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(doc.ID)
	s.documents[doc.ID] = d
	s.chunks[doc.ID] = stored
	for i, c := range stored {
		s.byChunkID[c.ID] = chunkRef{documentID: doc.ID, pos: i}
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetChunks retrieves all chunks for a document ordered by index.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.documents[documentID]; !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.Chunk, len(s.chunks[documentID]))
	copy(out, s.chunks[documentID])
	return out, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *DocumentStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.byChunkID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	chunk := s.chunks[ref.documentID][ref.pos]
	return &chunk, nil
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	s.removeLocked(id)
	return nil
}

func (s *DocumentStore) removeLocked(id string) {
	for _, c := range s.chunks[id] {
		delete(s.byChunkID, c.ID)
	}
	delete(s.chunks, id)
	delete(s.documents, id)
}

// ListDocuments returns all documents, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.After(docs[j].UploadedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// EachChunk calls fn for every chunk, documents oldest first.
// fn runs on a snapshot so it may call back into the store.
func (s *DocumentStore) EachChunk(ctx context.Context, fn func(doc *domain.Document, chunk *domain.Chunk) error) error {
	docs, err := s.ListDocuments(ctx)
	if err != nil {
		return err
	}
	for i := len(docs) - 1; i >= 0; i-- {
		doc := docs[i]
		chunks, err := s.GetChunks(ctx, doc.ID)
		if err != nil {
			// Deleted since the listing.
			continue
		}
		for j := range chunks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(&doc, &chunks[j]); err != nil {
				return err
			}
		}
	}
	return nil
}
