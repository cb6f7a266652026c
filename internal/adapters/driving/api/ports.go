// Package api serves the question answering pipeline over HTTP.
//
// Answers stream as server-sent events; every other route speaks JSON.
// Routes live under /api and are registered on a gin engine.
package api

import (
	"errors"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Errors returned when required ports are missing.
var (
	ErrMissingAskService          = errors.New("api: ask service is required")
	ErrMissingDocumentService     = errors.New("api: document service is required")
	ErrMissingConversationService = errors.New("api: conversation service is required")
	ErrMissingModelRegistry       = errors.New("api: model registry is required")
)

// Ports holds the driving ports the HTTP adapter serves.
type Ports struct {
	Ask          driving.AskService
	Document     driving.DocumentService
	Conversation driving.ConversationService
	Models       driving.ModelRegistry

	// Limits bounds uploads. Zero values fall back to the defaults.
	Limits domain.IngestSettings
}

// Validate checks that all required ports are present.
func (p *Ports) Validate() error {
	switch {
	case p.Ask == nil:
		return ErrMissingAskService
	case p.Document == nil:
		return ErrMissingDocumentService
	case p.Conversation == nil:
		return ErrMissingConversationService
	case p.Models == nil:
		return ErrMissingModelRegistry
	}
	return nil
}

func (p *Ports) maxFileBytes() int64 {
	if p.Limits.MaxFileBytes > 0 {
		return p.Limits.MaxFileBytes
	}
	return domain.DefaultMaxFileBytes
}

func (p *Ports) maxFiles() int {
	if p.Limits.MaxFiles > 0 {
		return p.Limits.MaxFiles
	}
	return domain.DefaultMaxFiles
}
