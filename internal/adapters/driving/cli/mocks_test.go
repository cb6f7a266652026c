package cli

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var testTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// mockAskService replays a fixed event list.
type mockAskService struct {
	events  []domain.AnswerEvent
	err     error
	lastReq domain.AskRequest
}

func (m *mockAskService) Ask(_ context.Context, req domain.AskRequest) (driving.AnswerStream, error) {
	m.lastReq = req
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

func answerEvents() []domain.AnswerEvent {
	sources := []domain.Source{{Filename: "policy.md", Score: 0.91, Preview: "Refunds within 30 days"}}
	return []domain.AnswerEvent{
		{Type: domain.EventMeta, Sources: sources},
		{Type: domain.EventDelta, Text: "Refunds are accepted "},
		{Type: domain.EventDelta, Text: "within 30 days."},
		{
			Type:           domain.EventFinal,
			Text:           "Refunds are accepted within 30 days.",
			Grounded:       true,
			Sources:        sources,
			ModelProvider:  "openai",
			ModelName:      "gpt-4o-mini",
			ConversationID: "conv-1",
			Timestamp:      testTime,
		},
		{Type: domain.EventDone},
	}
}

type mockRetrievalService struct{}

func (m *mockRetrievalService) Retrieve(context.Context, string, domain.RetrieveOptions) ([]domain.SourceReference, error) {
	return nil, nil
}

// mockDocumentService keeps documents in a slice.
type mockDocumentService struct {
	docs     []domain.Document
	chunks   []domain.Chunk
	ingested []driving.IngestRequest
	deleted  []string
	err      error
}

func (m *mockDocumentService) Ingest(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	results, err := m.IngestBatch(ctx, []driving.IngestRequest{req})
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

func (m *mockDocumentService) IngestBatch(_ context.Context, reqs []driving.IngestRequest) ([]driving.IngestResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	results := make([]driving.IngestResult, 0, len(reqs))
	for _, r := range reqs {
		m.ingested = append(m.ingested, r)
		res := driving.IngestResult{DocumentID: "doc-" + r.Filename, Filename: r.Filename, Chunks: 2}
		if len(bytes.TrimSpace(r.Content)) == 0 {
			res = driving.IngestResult{Filename: r.Filename, Skipped: true}
		}
		results = append(results, res)
	}
	return results, nil
}

func (m *mockDocumentService) List(context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) Chunks(_ context.Context, id string) ([]domain.Chunk, error) {
	if _, err := m.Get(context.Background(), id); err != nil {
		return nil, err
	}
	return m.chunks, nil
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	if _, err := m.Get(context.Background(), id); err != nil {
		return err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockConversationService struct {
	convs   map[string]*domain.Conversation
	deleted []string
}

func (m *mockConversationService) Get(_ context.Context, id string) (*domain.Conversation, error) {
	conv, ok := m.convs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return conv, nil
}

func (m *mockConversationService) List(context.Context) ([]domain.ConversationSummary, error) {
	out := make([]domain.ConversationSummary, 0, len(m.convs))
	for _, c := range m.convs {
		out = append(out, domain.ConversationSummary{
			ID:           c.ID,
			CreatedAt:    c.CreatedAt,
			MessageCount: len(c.Messages),
			Title:        domain.ConversationTitle(c.Messages),
		})
	}
	return out, nil
}

func (m *mockConversationService) Delete(_ context.Context, id string) error {
	if _, ok := m.convs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.convs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockModelRegistry struct{}

func (m *mockModelRegistry) Available() map[domain.AIProvider][]string {
	return map[domain.AIProvider][]string{
		domain.AIProviderOpenAI: {"gpt-4o-mini"},
		domain.AIProviderOllama: {"qwen2.5:7b", "llama3.2"},
	}
}

func (m *mockModelRegistry) Resolve(model string) (domain.ModelRef, error) {
	provider, name, ok := strings.Cut(model, ":")
	if !ok {
		return domain.ModelRef{}, domain.ErrUnknownModel
	}
	return domain.ModelRef{Provider: domain.AIProvider(provider), Name: name}, nil
}

func (m *mockModelRegistry) Default() domain.ModelRef {
	return domain.ModelRef{Provider: domain.AIProviderOllama, Name: "qwen2.5:7b"}
}

// mockSettingsService records Set and Save calls.
type mockSettingsService struct {
	settings domain.AppSettings
	set      map[string]string
	setErr   error
	saved    int
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	m.saved++
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error  { return nil }
func (m *mockSettingsService) ValidateLLMConfig() error        { return nil }

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	ask           *mockAskService
	documents     *mockDocumentService
	conversations *mockConversationService
	settings      *mockSettingsService
}

// setupTestServices installs mock services and returns a cleanup function.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		ask: &mockAskService{events: answerEvents()},
		documents: &mockDocumentService{
			docs: []domain.Document{
				{ID: "doc-1", Filename: "policy.md", MimeType: "text/markdown", SizeBytes: 2048, UploadedAt: testTime, ChunkCount: 3},
				{ID: "doc-2", Filename: "notes.txt", MimeType: "text/plain", SizeBytes: 120, UploadedAt: testTime, ChunkCount: 1},
			},
			chunks: []domain.Chunk{
				{ID: "c-0", DocumentID: "doc-1", Index: 0, Content: "Refunds within 30 days."},
				{ID: "c-1", DocumentID: "doc-1", Index: 1, Content: "Shipping is free."},
			},
		},
		conversations: &mockConversationService{convs: map[string]*domain.Conversation{
			"conv-1": {
				ID:        "conv-1",
				CreatedAt: testTime,
				Messages: []domain.Message{
					{Role: domain.RoleUser, Content: "What is the refund policy?"},
					{
						Role:          domain.RoleAssistant,
						Content:       "Refunds are accepted within 30 days.",
						ModelProvider: "openai",
						ModelName:     "gpt-4o-mini",
						Sources:       []domain.Source{{Filename: "policy.md", Score: 0.91}},
					},
				},
			},
		}},
		settings: &mockSettingsService{settings: domain.DefaultAppSettings(), set: map[string]string{}},
	}

	SetServices(&Services{
		Ask:           ts.ask,
		Retrieval:     &mockRetrievalService{},
		Documents:     ts.documents,
		Conversations: ts.conversations,
		Models:        &mockModelRegistry{},
		Settings:      ts.settings,
	})

	return ts, func() {
		SetServices(nil)
	}
}

// runCommand executes the root command with args and returns its output.
// Flag values are reset afterwards so tests do not leak into each other.
func runCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
