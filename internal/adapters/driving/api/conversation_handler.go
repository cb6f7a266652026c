package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// ConversationHandler exposes stored conversations.
type ConversationHandler struct {
	conversations driving.ConversationService
}

// NewConversationHandler creates a ConversationHandler.
func NewConversationHandler(conversations driving.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

type messageResponse struct {
	Role          string          `json:"role"`
	Content       string          `json:"content"`
	ModelProvider string          `json:"model_provider,omitempty"`
	ModelName     string          `json:"model_name,omitempty"`
	Sources       []domain.Source `json:"sources,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

type conversationResponse struct {
	ID        string            `json:"id"`
	CreatedAt string            `json:"created_at"`
	Messages  []messageResponse `json:"messages"`
}

type conversationSummaryResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
	CreatedAt    string `json:"created_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// List returns conversation summaries.
func (h *ConversationHandler) List(c *gin.Context) {
	summaries, err := h.conversations.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	resp := make([]conversationSummaryResponse, len(summaries))
	for i, s := range summaries {
		resp[i] = conversationSummaryResponse{
			ID:           s.ID,
			Title:        s.Title,
			MessageCount: s.MessageCount,
			CreatedAt:    formatTime(s.CreatedAt),
		}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": resp})
}

// Get returns a conversation with its messages in order.
func (h *ConversationHandler) Get(c *gin.Context) {
	conv, err := h.conversations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	resp := conversationResponse{
		ID:        conv.ID,
		CreatedAt: formatTime(conv.CreatedAt),
		Messages:  make([]messageResponse, len(conv.Messages)),
	}
	for i, m := range conv.Messages {
		resp.Messages[i] = messageResponse{
			Role:          m.Role.String(),
			Content:       m.Content,
			ModelProvider: m.ModelProvider,
			ModelName:     m.ModelName,
			Sources:       m.Sources,
			CreatedAt:     formatTime(m.CreatedAt),
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Delete removes a conversation and its messages.
func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.conversations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
