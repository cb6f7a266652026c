package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// mockAskService replays fixed events.
type mockAskService struct {
	events []domain.AnswerEvent
	err    error
	req    domain.AskRequest
}

func (m *mockAskService) Ask(_ context.Context, req domain.AskRequest) (driving.AnswerStream, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return func(yield func(domain.AnswerEvent) bool) {
		for _, ev := range m.events {
			if !yield(ev) {
				return
			}
		}
	}, nil
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	refs []domain.SourceReference
	err  error
	opts domain.RetrieveOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	_ string,
	opts domain.RetrieveOptions,
) ([]domain.SourceReference, error) {
	m.opts = opts
	return m.refs, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	chunks    []domain.Chunk
	err       error
}

func (m *mockDocumentService) Ingest(_ context.Context, _ driving.IngestRequest) (*driving.IngestResult, error) {
	return nil, m.err
}

func (m *mockDocumentService) IngestBatch(_ context.Context, _ []driving.IngestRequest) ([]driving.IngestResult, error) {
	return nil, m.err
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}

// mockConversationService is a mock implementation of driving.ConversationService.
type mockConversationService struct {
	conversation *domain.Conversation
	err          error
}

func (m *mockConversationService) Get(_ context.Context, _ string) (*domain.Conversation, error) {
	return m.conversation, m.err
}

func (m *mockConversationService) List(_ context.Context) ([]domain.ConversationSummary, error) {
	return nil, m.err
}

func (m *mockConversationService) Delete(_ context.Context, _ string) error {
	return m.err
}

func requiredPorts() *Ports {
	return &Ports{
		Ask:       &mockAskService{},
		Retrieval: &mockRetrievalService{},
	}
}
