package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentStore persists documents and their chunks.
type DocumentStore interface {
	// SaveDocument stores a document together with all of its chunks.
	// Either everything is stored or nothing is.
	SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns all documents, newest first, with chunk counts.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// EachChunk calls fn for every stored chunk with its document.
	// Iteration stops at the first error returned by fn.
	EachChunk(ctx context.Context, fn func(doc *domain.Document, chunk *domain.Chunk) error) error
}

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	// CreateConversation starts a new, empty conversation.
	CreateConversation(ctx context.Context) (*domain.Conversation, error)

	// AppendMessage adds a message to the end of a conversation.
	// Returns domain.ErrNotFound for an unknown conversation. The stored
	// CreatedAt is never earlier than that of the previous message.
	AppendMessage(ctx context.Context, conversationID string, msg domain.MessageInput) (*domain.Message, error)

	// GetConversation returns the conversation with its messages in order.
	// Returns domain.ErrNotFound if it does not exist.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// DeleteConversation removes a conversation and its messages.
	DeleteConversation(ctx context.Context, id string) error

	// ListConversations returns conversation summaries, newest first.
	ListConversations(ctx context.Context) ([]domain.ConversationSummary, error)
}
