package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// Batch sizes for embedding and index hydration.
const (
	embedBatchSize   = 32
	hydrateBatchSize = 256
)

// extensionTypes covers extensions the system MIME table often lacks.
var extensionTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".csv":      "text/csv",
	".json":     "application/json",
	".html":     "text/html",
	".htm":      "text/html",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
}

// DocumentService ingests uploaded files and manages stored documents.
//
// A document is committed only after every chunk was embedded, stored and
// indexed. Commits and deletes of the same document are serialized.
type DocumentService struct {
	chunker     driven.Chunker
	normalisers driven.NormaliserRegistry
	embedder    driven.EmbeddingService
	vectorIndex driven.VectorIndex
	docStore    driven.DocumentStore
	limits      domain.IngestSettings
	locks       *keyedMutex
	now         func() time.Time
	newID       func() string
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	chunker driven.Chunker,
	normalisers driven.NormaliserRegistry,
	embedder driven.EmbeddingService,
	vectorIndex driven.VectorIndex,
	docStore driven.DocumentStore,
	limits domain.IngestSettings,
) *DocumentService {
	if limits.MaxFileBytes <= 0 {
		limits.MaxFileBytes = domain.DefaultMaxFileBytes
	}
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = domain.DefaultMaxFiles
	}
	return &DocumentService{
		chunker:     chunker,
		normalisers: normalisers,
		embedder:    embedder,
		vectorIndex: vectorIndex,
		docStore:    docStore,
		limits:      limits,
		locks:       newKeyedMutex(),
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// Ingest normalises, chunks, embeds, stores and indexes one file.
//
// Empty text fails with domain.ErrEmptyInput before any write. Embedding
// and index failures fail with domain.ErrIndexWrite and leave nothing
// behind.
func (s *DocumentService) Ingest(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	logger.Section("Ingest")

	if err := s.checkFile(req); err != nil {
		return nil, err
	}

	mimeType := DetectMIMEType(req.Filename, req.MimeType, req.Content)
	logger.Debug("File %s: %d bytes, %s", req.Filename, len(req.Content), mimeType)

	text, err := s.normalisers.Normalise(ctx, mimeType, req.Content)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", req.Filename, err)
	}

	parts, err := s.chunker.Chunk(text)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", req.Filename, err)
	}
	logger.Debug("Split into %d chunks", len(parts))

	vectors, err := s.embed(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed %s: %w", domain.ErrIndexWrite, req.Filename, err)
	}

	doc := &domain.Document{
		ID:         s.newID(),
		Filename:   filepath.Base(req.Filename),
		MimeType:   mimeType,
		SizeBytes:  int64(len(req.Content)),
		UploadedAt: s.now().UTC(),
	}
	chunks := make([]domain.Chunk, len(parts))
	entries := make([]driven.IndexEntry, len(parts))
	for i, part := range parts {
		chunks[i] = domain.Chunk{
			ID:         ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Index:      i,
			Content:    part,
			Embedding:  vectors[i],
		}
		entries[i] = driven.IndexEntry{
			ChunkID:    chunks[i].ID,
			DocumentID: doc.ID,
			ChunkIndex: i,
			UploadedAt: doc.UploadedAt,
			Vector:     vectors[i],
		}
	}

	if err := s.commit(ctx, doc, chunks, entries); err != nil {
		return nil, err
	}

	logger.Info("Ingested %s as %s (%d chunks)", doc.Filename, doc.ID, len(chunks))
	return &driving.IngestResult{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Chunks:     len(chunks),
	}, nil
}

// commit stores the document, then indexes it. An index failure rolls the
// store back.
func (s *DocumentService) commit(
	ctx context.Context, doc *domain.Document, chunks []domain.Chunk, entries []driven.IndexEntry,
) error {
	unlock := s.locks.Lock(doc.ID)
	defer unlock()

	if err := s.docStore.SaveDocument(ctx, doc, chunks); err != nil {
		return fmt.Errorf("%w: store %s: %w", domain.ErrIndexWrite, doc.Filename, err)
	}

	if err := s.vectorIndex.Upsert(ctx, entries...); err != nil {
		// The rollback must run even when ctx caused the failure.
		rollbackCtx := context.WithoutCancel(ctx)
		if rbErr := s.docStore.DeleteDocument(rollbackCtx, doc.ID); rbErr != nil {
			logger.Error("Rollback of document %s failed: %v", doc.ID, rbErr)
		}
		return fmt.Errorf("%w: index %s: %w", domain.ErrIndexWrite, doc.Filename, err)
	}
	return nil
}

// IngestBatch ingests files in order. The batch size and every file size are
// checked before anything is written. Files without text are skipped.
func (s *DocumentService) IngestBatch(
	ctx context.Context, reqs []driving.IngestRequest,
) ([]driving.IngestResult, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no files", domain.ErrInvalidInput)
	}
	if len(reqs) > s.limits.MaxFiles {
		return nil, fmt.Errorf("%w: %d files, limit is %d", domain.ErrTooManyFiles, len(reqs), s.limits.MaxFiles)
	}
	for _, req := range reqs {
		if err := s.checkFile(req); err != nil {
			return nil, err
		}
	}

	results := make([]driving.IngestResult, 0, len(reqs))
	for _, req := range reqs {
		res, err := s.Ingest(ctx, req)
		if errors.Is(err, domain.ErrEmptyInput) {
			logger.Warn("Skipping %s: no text content", req.Filename)
			results = append(results, driving.IngestResult{Filename: filepath.Base(req.Filename), Skipped: true})
			continue
		}
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

func (s *DocumentService) checkFile(req driving.IngestRequest) error {
	if strings.TrimSpace(req.Filename) == "" {
		return fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	if int64(len(req.Content)) > s.limits.MaxFileBytes {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d",
			domain.ErrFileTooLarge, req.Filename, len(req.Content), s.limits.MaxFileBytes)
	}
	return nil
}

// embed embeds parts in batches, preserving order.
func (s *DocumentService) embed(ctx context.Context, parts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(parts))
	for start := 0; start < len(parts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(parts))
		batch, err := s.embedder.EmbedBatch(ctx, parts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// List returns all documents, newest first.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, documentID)
}

// Chunks returns a document's chunks ordered by index.
func (s *DocumentService) Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return s.docStore.GetChunks(ctx, documentID)
}

// Delete removes the document's index entries, then the document and its chunks.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	unlock := s.locks.Lock(documentID)
	defer unlock()

	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.vectorIndex.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete index entries: %w", err)
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	logger.Info("Deleted document %s", documentID)
	return nil
}

// Hydrate loads every stored chunk vector into the vector index and returns
// the number of entries loaded. Use it at startup with in-process indexes.
func (s *DocumentService) Hydrate(ctx context.Context) (int, error) {
	logger.Section("Hydrate")

	var (
		batch  []driven.IndexEntry
		loaded int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.vectorIndex.Upsert(ctx, batch...); err != nil {
			return err
		}
		loaded += len(batch)
		batch = batch[:0]
		return nil
	}

	err := s.docStore.EachChunk(ctx, func(doc *domain.Document, chunk *domain.Chunk) error {
		if len(chunk.Embedding) == 0 {
			logger.Warn("Chunk %s has no stored embedding", chunk.ID)
			return nil
		}
		batch = append(batch, driven.IndexEntry{
			ChunkID:    chunk.ID,
			DocumentID: doc.ID,
			ChunkIndex: chunk.Index,
			UploadedAt: doc.UploadedAt,
			Vector:     chunk.Embedding,
		})
		if len(batch) >= hydrateBatchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return loaded, fmt.Errorf("hydrate vector index: %w", err)
	}

	logger.Info("Loaded %d vectors into the index", loaded)
	return loaded, nil
}

// ChunkID derives a stable chunk id from the document id and chunk index.
func ChunkID(documentID string, index int) string {
	ns, err := uuid.Parse(documentID)
	if err != nil {
		ns = uuid.NewSHA1(uuid.NameSpaceURL, []byte(documentID))
	}
	return uuid.NewSHA1(ns, []byte(strconv.Itoa(index))).String()
}

// DetectMIMEType returns the declared type when set, otherwise a type
// derived from the file extension, otherwise one sniffed from content.
// Parameters such as charset are dropped.
func DetectMIMEType(filename, declared string, content []byte) string {
	candidate := declared
	if candidate == "" || candidate == "application/octet-stream" {
		ext := strings.ToLower(filepath.Ext(filename))
		if t, ok := extensionTypes[ext]; ok {
			candidate = t
		} else if t := mime.TypeByExtension(ext); t != "" {
			candidate = t
		} else {
			candidate = http.DetectContentType(content)
		}
	}
	if mt, _, err := mime.ParseMediaType(candidate); err == nil {
		return mt
	}
	return candidate
}
