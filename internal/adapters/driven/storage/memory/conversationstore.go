package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is an in-memory implementation of driven.ConversationStore.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation
	now           func() time.Time
}

// NewConversationStore creates a new in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*domain.Conversation),
		now:           time.Now,
	}
}

// CreateConversation starts an empty conversation.
func (s *ConversationStore) CreateConversation(_ context.Context) (*domain.Conversation, error) {
	conv := &domain.Conversation{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = conv
	return cloneConversation(conv), nil
}

// AppendMessage adds a message, clamping its timestamp to the previous one.
func (s *ConversationStore) AppendMessage(_ context.Context, conversationID string, in domain.MessageInput) (*domain.Message, error) {
	if !in.Role.IsValid() {
		return nil, domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	created := s.now().UTC()
	if n := len(conv.Messages); n > 0 && created.Before(conv.Messages[n-1].CreatedAt) {
		created = conv.Messages[n-1].CreatedAt
	}

	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           in.Role,
		Content:        in.Content,
		CreatedAt:      created,
		ModelProvider:  in.ModelProvider,
		ModelName:      in.ModelName,
		Sources:        append([]domain.Source(nil), in.Sources...),
	}
	conv.Messages = append(conv.Messages, msg)
	return &msg, nil
}

// GetConversation returns a copy of the conversation.
func (s *ConversationStore) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneConversation(conv), nil
}

// DeleteConversation removes a conversation.
func (s *ConversationStore) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}

// ListConversations returns summaries, newest first.
func (s *ConversationStore) ListConversations(_ context.Context) ([]domain.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ConversationSummary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, domain.ConversationSummary{
			ID:           conv.ID,
			CreatedAt:    conv.CreatedAt,
			MessageCount: len(conv.Messages),
			Title:        domain.ConversationTitle(conv.Messages),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func cloneConversation(c *domain.Conversation) *domain.Conversation {
	out := *c
	out.Messages = make([]domain.Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return &out
}
