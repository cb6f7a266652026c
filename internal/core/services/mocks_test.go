package services

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	vectormemory "github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
)

// --- Mock implementations ---

// vocabulary defines the dimensions of keywordEmbedder vectors.
var vocabulary = []string{"refund", "policy", "shipping", "cat", "dog", "weather"}

// keywordEmbedder embeds text as keyword counts plus a small constant
// dimension, so unrelated texts are nearly orthogonal.
type keywordEmbedder struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(vocabulary)+1)
	for i, word := range vocabulary {
		vec[i] = float32(strings.Count(lower, word))
	}
	vec[len(vocabulary)] = 0.05
	return vec, nil
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *keywordEmbedder) Dimensions() int              { return len(vocabulary) + 1 }
func (e *keywordEmbedder) ModelName() string            { return "keyword" }
func (e *keywordEmbedder) Ping(_ context.Context) error { return nil }
func (e *keywordEmbedder) Close() error                 { return nil }

// scriptedLLM yields fixed fragments, then err if set.
type scriptedLLM struct {
	mu        sync.Mutex
	fragments []string
	err       error
	calls     int
	yielded   int
	messages  []driven.ChatMessage
}

func (l *scriptedLLM) ChatStream(
	_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions,
) iter.Seq2[string, error] {
	l.mu.Lock()
	l.calls++
	l.messages = append([]driven.ChatMessage(nil), messages...)
	l.mu.Unlock()

	return func(yield func(string, error) bool) {
		for _, f := range l.fragments {
			l.mu.Lock()
			l.yielded++
			l.mu.Unlock()
			if !yield(f, nil) {
				return
			}
		}
		if l.err != nil {
			yield("", l.err)
		}
	}
}

func (l *scriptedLLM) Provider() string             { return "ollama" }
func (l *scriptedLLM) ModelName() string            { return "qwen2.5:7b" }
func (l *scriptedLLM) Ping(_ context.Context) error { return nil }
func (l *scriptedLLM) Close() error                 { return nil }

func (l *scriptedLLM) lastMessages() []driven.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.messages
}

// stubLLMProvider returns the same service for every model.
type stubLLMProvider struct {
	llm driven.LLMService
	err error
}

func (p *stubLLMProvider) LLM(_, _ string) (driven.LLMService, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.llm, nil
}

// failingIndex wraps an index and fails every upsert.
type failingIndex struct {
	driven.VectorIndex
}

func (f *failingIndex) Upsert(_ context.Context, _ ...driven.IndexEntry) error {
	return errors.New("index offline")
}

// wordCounter counts whitespace-separated words.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

// stubPromptStore serves fixed prompts.
type stubPromptStore struct {
	prompts map[string]string
}

func (s *stubPromptStore) Load(name string) (string, error) {
	p, ok := s.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (s *stubPromptStore) Reload() {}

// mockAIConfigValidator records validation calls.
type mockAIConfigValidator struct {
	embeddingErr   error
	llmErr         error
	embeddingCalls int
	llmCalls       int
}

func (m *mockAIConfigValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	m.embeddingCalls++
	return m.embeddingErr
}

func (m *mockAIConfigValidator) ValidateLLM(_ *domain.LLMSettings) error {
	m.llmCalls++
	return m.llmErr
}

// --- Fixture ---

// pipeline wires the services over in-memory adapters.
type pipeline struct {
	embedder      *keywordEmbedder
	llm           *scriptedLLM
	index         *vectormemory.Index
	docs          *memory.DocumentStore
	conversations *memory.ConversationStore
	documents     *DocumentService
	retriever     *RetrievalService
	ask           *AskService
}

func newPipeline(t *testing.T, fragments ...string) *pipeline {
	t.Helper()

	chunks, err := chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(20))
	require.NoError(t, err)

	p := &pipeline{
		embedder:      &keywordEmbedder{},
		llm:           &scriptedLLM{fragments: fragments},
		index:         vectormemory.New(len(vocabulary)+1, domain.ScoreMappingClamped),
		docs:          memory.NewDocumentStore(),
		conversations: memory.NewConversationStore(),
	}
	p.documents = NewDocumentService(chunks, normalisers.NewDefaultRegistry(), p.embedder, p.index, p.docs,
		domain.IngestSettings{MaxFileBytes: 1024, MaxFiles: 3})
	p.retriever = NewRetrievalService(p.embedder, p.index, p.docs)

	models := NewModelRegistry(domain.DefaultModelRegistry(),
		domain.ModelRef{Provider: domain.AIProviderOllama, Name: "qwen2.5:7b"})
	assembler := NewGroundingAssembler(GroundingConfig{HistoryMessages: 6}, nil, nil)
	p.ask = NewAskService(
		AskConfig{TopK: 5, MinScore: 0.45},
		models,
		&stubLLMProvider{llm: p.llm},
		p.conversations,
		p.retriever,
		assembler,
		NewAnswerStreamer(p.conversations, true),
	)
	return p
}

func (p *pipeline) ingest(t *testing.T, filename, content string) string {
	t.Helper()
	res, err := p.documents.Ingest(context.Background(), driving.IngestRequest{
		Filename: filename,
		Content:  []byte(content),
	})
	require.NoError(t, err)
	return res.DocumentID
}

// collect drains a stream.
func collect(stream driving.AnswerStream) []domain.AnswerEvent {
	var events []domain.AnswerEvent
	for ev := range stream {
		events = append(events, ev)
	}
	return events
}

// eventTypes lists the types of events in order.
func eventTypes(events []domain.AnswerEvent) []domain.EventType {
	types := make([]domain.EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

// deltaText concatenates all delta fragments.
func deltaText(events []domain.AnswerEvent) string {
	var sb strings.Builder
	for _, ev := range events {
		if ev.Type == domain.EventDelta {
			sb.WriteString(ev.Text)
		}
	}
	return sb.String()
}
