package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/sse"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// AskHandler streams grounded answers.
type AskHandler struct {
	ask driving.AskService
}

// NewAskHandler creates an AskHandler.
func NewAskHandler(ask driving.AskService) *AskHandler {
	return &AskHandler{ask: ask}
}

// Ask answers a question as a server-sent event stream.
// Validation failures are reported as JSON before any event is written.
// A client disconnect cancels the request context, which stops generation.
func (h *AskHandler) Ask(c *gin.Context) {
	var req askRequest
	if !bindJSON(c, &req) {
		return
	}

	stream, err := h.ask.Ask(c.Request.Context(), domain.AskRequest{
		Question:       req.Question,
		ConversationID: req.ConversationID,
		Model:          req.Model,
		TopK:           req.TopK,
		MinScore:       req.MinScore,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header("Content-Type", sse.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if err := sse.NewEncoder(c.Writer).EncodeStream(stream); err != nil {
		logger.Debug("ask stream ended early: %v", err)
	}
}
