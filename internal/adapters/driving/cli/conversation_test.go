package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationListCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand("conversation", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "conv-1")
	assert.Contains(t, out, "2 messages")
	assert.Contains(t, out, "What is the refund policy?")
}

func TestConversationListCmd_Empty(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	delete(ts.conversations.convs, "conv-1")

	out, err := runCommand("conversations", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No conversations.")
}

func TestConversationShowCmd(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand("conversation", "show", "conv-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Conversation: conv-1")
	assert.Contains(t, out, "[user]\nWhat is the refund policy?")
	assert.Contains(t, out, "[assistant] openai:gpt-4o-mini\nRefunds are accepted within 30 days.")
	assert.Contains(t, out, "  - policy.md (0.91)")
}

func TestConversationShowCmd_NotFound(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand("conversation", "show", "nope")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get conversation")
}

func TestConversationDeleteCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand("conv", "delete", "conv-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Conversation conv-1 deleted.")
	assert.Equal(t, []string{"conv-1"}, ts.conversations.deleted)
}

func TestConversationCmd_NotConfigured(t *testing.T) {
	SetServices(nil)

	_, err := runCommand("conversation", "list")

	assert.ErrorIs(t, err, errConversationNotConfigured)
}
