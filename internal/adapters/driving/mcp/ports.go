package mcp

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Ask answers questions from the uploaded documents.
	Ask driving.AskService

	// Retrieval finds relevant passages.
	Retrieval driving.RetrievalService

	// Document lists and reads uploaded documents.
	Document driving.DocumentService

	// Conversation reads stored conversations.
	Conversation driving.ConversationService

	// Defaults fill top_k and min_score when a retrieve call omits them.
	Defaults domain.RetrieveOptions
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Ask == nil {
		return ErrMissingAskService
	}
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// Document and Conversation are optional
	return nil
}
