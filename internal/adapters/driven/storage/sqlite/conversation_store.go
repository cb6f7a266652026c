package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// conversationStore implements driven.ConversationStore.
type conversationStore struct {
	store *Store
	now   func() time.Time
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// CreateConversation starts an empty conversation.
func (s *conversationStore) CreateConversation(ctx context.Context) (*domain.Conversation, error) {
	conv := &domain.Conversation{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
	}

	_, err := s.store.db.ExecContext(ctx,
		"INSERT INTO conversations (id, created_at) VALUES (?, ?)",
		conv.ID, toUnix(conv.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	// Round-trip precision.
	conv.CreatedAt = fromUnix(toUnix(conv.CreatedAt))
	return conv, nil
}

// AppendMessage adds a message after the last one, never earlier in time.
func (s *conversationStore) AppendMessage(
	ctx context.Context,
	conversationID string,
	in domain.MessageInput,
) (*domain.Message, error) {
	if !in.Role.IsValid() {
		return nil, fmt.Errorf("%w: role %q", domain.ErrInvalidInput, in.Role)
	}

	sources := in.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("marshalling sources: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM conversations WHERE id = ?", conversationID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}

	var lastSeq, lastAt int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0), COALESCE(MAX(created_at), 0)
		FROM messages WHERE conversation_id = ?
	`, conversationID).Scan(&lastSeq, &lastAt)
	if err != nil {
		return nil, fmt.Errorf("loading last message: %w", err)
	}

	created := toUnix(s.now())
	if created < lastAt {
		created = lastAt
	}

	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           in.Role,
		Content:        in.Content,
		CreatedAt:      fromUnix(created),
		ModelProvider:  in.ModelProvider,
		ModelName:      in.ModelName,
		Sources:        in.Sources,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, seq, role, content, created_at,
		                      model_provider, model_name, sources)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, conversationID, lastSeq+1, string(msg.Role), msg.Content, created,
		msg.ModelProvider, msg.ModelName, string(sourcesJSON))
	if err != nil {
		return nil, fmt.Errorf("saving message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return msg, nil
}

// GetConversation returns the conversation with its messages in order.
func (s *conversationStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	var created int64
	err := s.store.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM conversations WHERE id = ?", id).Scan(&conv.ID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	conv.CreatedAt = fromUnix(created)

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, role, content, created_at, model_provider, model_name, sources
		FROM messages WHERE conversation_id = ?
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		msg := domain.Message{ConversationID: id}
		var role, sourcesJSON string
		var at int64
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &at,
			&msg.ModelProvider, &msg.ModelName, &sourcesJSON); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Role = domain.Role(role)
		msg.CreatedAt = fromUnix(at)
		if err := json.Unmarshal([]byte(sourcesJSON), &msg.Sources); err != nil {
			return nil, fmt.Errorf("unmarshaling sources: %w", err)
		}
		if len(msg.Sources) == 0 {
			msg.Sources = nil
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return &conv, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *conversationStore) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListConversations returns summaries, newest first.
func (s *conversationStore) ListConversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.created_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id),
		       COALESCE((SELECT m.content FROM messages m
		                 WHERE m.conversation_id = c.id AND m.role = 'user'
		                 ORDER BY m.seq LIMIT 1), '')
		FROM conversations c
		ORDER BY c.created_at DESC, c.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	out := []domain.ConversationSummary{}
	for rows.Next() {
		var summary domain.ConversationSummary
		var created int64
		var first string
		if err := rows.Scan(&summary.ID, &created, &summary.MessageCount, &first); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		summary.CreatedAt = fromUnix(created)
		summary.Title = domain.ConversationTitle([]domain.Message{{Role: domain.RoleUser, Content: first}})
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return out, nil
}
