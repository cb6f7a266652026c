package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// ModelHandler lists generation models.
type ModelHandler struct {
	models driving.ModelRegistry
}

// NewModelHandler creates a ModelHandler.
func NewModelHandler(models driving.ModelRegistry) *ModelHandler {
	return &ModelHandler{models: models}
}

// List returns the offered models grouped by provider and the default.
func (h *ModelHandler) List(c *gin.Context) {
	available := h.models.Available()
	resp := make(map[string][]string, len(available))
	for provider, names := range available {
		resp[provider.String()] = names
	}
	c.JSON(http.StatusOK, gin.H{
		"models":  resp,
		"default": h.models.Default().String(),
	})
}
