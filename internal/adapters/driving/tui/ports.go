// Package tui provides an interactive terminal user interface for sercha.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces used by the TUI.
type Ports struct {
	// Ask answers questions as a stream of events.
	Ask driving.AskService

	// Document lists, shows and deletes uploaded documents.
	Document driving.DocumentService

	// Models lists the models the chat view can switch between. Optional.
	Models driving.ModelRegistry
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(ask driving.AskService, document driving.DocumentService, models driving.ModelRegistry) *Ports {
	return &Ports{
		Ask:      ask,
		Document: document,
		Models:   models,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Ask == nil {
		return ErrMissingAskService
	}
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	return nil
}
