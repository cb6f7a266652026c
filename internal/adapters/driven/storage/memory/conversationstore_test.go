package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestConversationStore_AppendAndGet(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, conv.ID)

	_, err = store.AppendMessage(ctx, conv.ID, domain.MessageInput{Role: domain.RoleUser, Content: "question"})
	require.NoError(t, err)
	msg, err := store.AppendMessage(ctx, conv.ID, domain.MessageInput{
		Role:          domain.RoleAssistant,
		Content:       "answer",
		ModelProvider: "ollama",
		ModelName:     "qwen2.5:7b",
		Sources:       []domain.Source{{Filename: "a.txt", Score: 0.9, Preview: "p"}},
	})
	require.NoError(t, err)
	assert.Equal(t, conv.ID, msg.ConversationID)

	got, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, domain.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "answer", got.Messages[1].Content)
	assert.Equal(t, "a.txt", got.Messages[1].Sources[0].Filename)
}

func TestConversationStore_UnknownConversation(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	_, err := store.AppendMessage(ctx, "missing", domain.MessageInput{Role: domain.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetConversation(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.DeleteConversation(ctx, "missing"), domain.ErrNotFound)
}

func TestConversationStore_RejectsSystemRole(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()
	conv, err := store.CreateConversation(ctx)
	require.NoError(t, err)

	_, err = store.AppendMessage(ctx, conv.ID, domain.MessageInput{Role: domain.RoleSystem, Content: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConversationStore_TimestampsNeverDecrease(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(time.Minute), base.Add(-time.Hour)}
	calls := 0
	store.now = func() time.Time {
		ts := clock[min(calls, len(clock)-1)]
		calls++
		return ts
	}

	conv, err := store.CreateConversation(ctx)
	require.NoError(t, err)
	first, err := store.AppendMessage(ctx, conv.ID, domain.MessageInput{Role: domain.RoleUser, Content: "a"})
	require.NoError(t, err)
	second, err := store.AppendMessage(ctx, conv.ID, domain.MessageInput{Role: domain.RoleAssistant, Content: "b"})
	require.NoError(t, err)

	assert.Equal(t, base.Add(time.Minute), first.CreatedAt)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestConversationStore_ListNewestFirst(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	next := base
	store.now = func() time.Time {
		next = next.Add(time.Second)
		return next
	}

	older, err := store.CreateConversation(ctx)
	require.NoError(t, err)
	_, err = store.AppendMessage(ctx, older.ID, domain.MessageInput{Role: domain.RoleUser, Content: "first question"})
	require.NoError(t, err)
	newer, err := store.CreateConversation(ctx)
	require.NoError(t, err)

	list, err := store.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
	assert.Equal(t, 1, list[1].MessageCount)
	assert.Equal(t, "first question", list[1].Title)
}

func TestConversationStore_Delete(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()
	conv, err := store.CreateConversation(ctx)
	require.NoError(t, err)

	require.NoError(t, store.DeleteConversation(ctx, conv.ID))
	_, err = store.GetConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationStore_IndependentConversations(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	const n = 10
	ids := make([]string, n)
	for i := range ids {
		conv, err := store.CreateConversation(ctx)
		require.NoError(t, err)
		ids[i] = conv.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_, err := store.AppendMessage(ctx, id, domain.MessageInput{Role: domain.RoleUser, Content: "m"})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		conv, err := store.GetConversation(ctx, id)
		require.NoError(t, err)
		assert.Len(t, conv.Messages, 5)
	}
}

func TestConversationStore_GetReturnsCopy(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()
	conv, err := store.CreateConversation(ctx)
	require.NoError(t, err)
	_, err = store.AppendMessage(ctx, conv.ID, domain.MessageInput{Role: domain.RoleUser, Content: "a"})
	require.NoError(t, err)

	got, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	got.Messages[0].Content = "mutated"

	again, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Messages[0].Content)
}
