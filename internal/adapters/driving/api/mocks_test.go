package api

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// mockAskService replays fixed events and records how far they were consumed.
type mockAskService struct {
	mu      sync.Mutex
	events  []domain.AnswerEvent
	err     error
	req     domain.AskRequest
	yielded int
	ctxErr  error
}

func (m *mockAskService) Ask(ctx context.Context, req domain.AskRequest) (driving.AnswerStream, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return func(yield func(domain.AnswerEvent) bool) {
		for _, ev := range m.events {
			if ctx.Err() != nil {
				m.mu.Lock()
				m.ctxErr = ctx.Err()
				m.mu.Unlock()
				return
			}
			m.mu.Lock()
			m.yielded++
			m.mu.Unlock()
			if !yield(ev) {
				return
			}
		}
	}, nil
}

// mockDocumentService records ingest requests.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	results   []driving.IngestResult
	batches   [][]driving.IngestRequest
	deleted   []string
	err       error
}

func (m *mockDocumentService) Ingest(_ context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	m.batches = append(m.batches, []driving.IngestRequest{req})
	if m.err != nil {
		return nil, m.err
	}
	return &m.results[0], nil
}

func (m *mockDocumentService) IngestBatch(_ context.Context, reqs []driving.IngestRequest) ([]driving.IngestResult, error) {
	m.batches = append(m.batches, reqs)
	return m.results, m.err
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return nil, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return m.err
}

// mockConversationService is a mock implementation of driving.ConversationService.
type mockConversationService struct {
	conversation *domain.Conversation
	summaries    []domain.ConversationSummary
	err          error
}

func (m *mockConversationService) Get(_ context.Context, _ string) (*domain.Conversation, error) {
	return m.conversation, m.err
}

func (m *mockConversationService) List(_ context.Context) ([]domain.ConversationSummary, error) {
	return m.summaries, m.err
}

func (m *mockConversationService) Delete(_ context.Context, _ string) error {
	return m.err
}

// stubModelRegistry is a fixed driving.ModelRegistry.
type stubModelRegistry struct{}

func (stubModelRegistry) Available() map[domain.AIProvider][]string {
	return map[domain.AIProvider][]string{
		domain.AIProviderOpenAI: {"gpt-4o-mini"},
		domain.AIProviderOllama: {"qwen2.5:7b"},
	}
}

func (stubModelRegistry) Resolve(string) (domain.ModelRef, error) {
	return stubModelRegistry{}.Default(), nil
}

func (stubModelRegistry) Default() domain.ModelRef {
	return domain.ModelRef{Provider: domain.AIProviderOllama, Name: "qwen2.5:7b"}
}

type fixture struct {
	ask           *mockAskService
	documents     *mockDocumentService
	conversations *mockConversationService
}

func newFixture() *fixture {
	return &fixture{
		ask:           &mockAskService{},
		documents:     &mockDocumentService{},
		conversations: &mockConversationService{},
	}
}

func (f *fixture) ports() *Ports {
	return &Ports{
		Ask:          f.ask,
		Document:     f.documents,
		Conversation: f.conversations,
		Models:       stubModelRegistry{},
		Limits:       domain.IngestSettings{MaxFileBytes: 64, MaxFiles: 2},
	}
}
