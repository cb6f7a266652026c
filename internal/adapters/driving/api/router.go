package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Options configures the HTTP router.
type Options struct {
	// RateLimit limits requests per client. The zero value disables it.
	RateLimit RateLimitConfig

	// Extra mounts additional handlers under fixed paths, such as the MCP
	// streamable HTTP endpoint.
	Extra map[string]http.Handler
}

// NewRouter builds a gin engine serving all routes.
func NewRouter(ports *Ports, opts Options) (*gin.Engine, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	api.Use(RateLimit(opts.RateLimit))
	RegisterRoutes(api, RouterDeps{
		Ask:           NewAskHandler(ports.Ask),
		Documents:     NewDocumentHandler(ports.Document, ports.maxFileBytes(), ports.maxFiles()),
		Conversations: NewConversationHandler(ports.Conversation),
		Models:        NewModelHandler(ports.Models),
	})

	for path, h := range opts.Extra {
		engine.Any(path, gin.WrapH(h))
	}
	return engine, nil
}

// RouterDeps holds the handlers behind each route group.
type RouterDeps struct {
	Ask           *AskHandler
	Documents     *DocumentHandler
	Conversations *ConversationHandler
	Models        *ModelHandler
}

// RegisterRoutes registers all API routes on group.
func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/ask", deps.Ask.Ask)
	api.POST("/ask_stream", deps.Ask.Ask)

	api.POST("/documents", deps.Documents.Upload)
	api.POST("/documents/upload", deps.Documents.Upload)
	api.GET("/documents", deps.Documents.List)
	api.GET("/documents/:id", deps.Documents.Get)
	api.DELETE("/documents/:id", deps.Documents.Delete)

	api.GET("/conversations", deps.Conversations.List)
	api.GET("/conversations/:id", deps.Conversations.Get)
	api.DELETE("/conversations/:id", deps.Conversations.Delete)

	api.GET("/models", deps.Models.List)
}
