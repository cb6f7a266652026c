package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentService ingests and manages uploaded documents.
type DocumentService interface {
	// Ingest chunks, embeds and indexes one file. Nothing is committed unless
	// every step succeeds.
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)

	// IngestBatch ingests several files, stopping at the first failure.
	// Files with no extractable text are skipped.
	IngestBatch(ctx context.Context, reqs []IngestRequest) ([]IngestResult, error)

	// List returns all documents, newest first.
	List(ctx context.Context) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// Chunks returns a document's chunks ordered by index.
	Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// Delete removes a document, its chunks and its index entries.
	Delete(ctx context.Context, documentID string) error
}

// IngestRequest is one file submitted for ingestion.
type IngestRequest struct {
	// Filename is the original file name.
	Filename string

	// MimeType is the declared content type. Detected when empty.
	MimeType string

	// Content is the raw file content.
	Content []byte
}

// IngestResult reports a committed document.
type IngestResult struct {
	DocumentID string
	Filename   string
	Chunks     int

	// Skipped is set when the file had no extractable text (batch only).
	Skipped bool
}

// ConversationService reads and removes stored conversations.
type ConversationService interface {
	// Get returns a conversation with its messages.
	Get(ctx context.Context, id string) (*domain.Conversation, error)

	// List returns conversation summaries, newest first.
	List(ctx context.Context) ([]domain.ConversationSummary, error)

	// Delete removes a conversation.
	Delete(ctx context.Context, id string) error
}
