// Package messages holds the tea.Msg types the TUI views exchange.
package messages

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ViewType names a screen of the TUI.
type ViewType int

const (
	ViewMenu ViewType = iota
	ViewChat
	ViewDocuments
	ViewDocContent // chunks of one document
	ViewHelp
)

var viewNames = [...]string{"menu", "chat", "documents", "doc_content", "help"}

func (v ViewType) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

// ViewChanged asks the app to show another screen.
type ViewChanged struct{ View ViewType }

// ErrorOccurred reports a failure to the active view.
type ErrorOccurred struct{ Err error }

// Quit ends the program.
type Quit struct{}

// AnswerStarted carries the stream of an accepted question, or why it was
// refused. Events is closed after the last event or when the answer is stopped.
type AnswerStarted struct {
	Question string
	Events   <-chan domain.AnswerEvent
	Err      error
}

// AnswerEventReceived carries one event read from the stream.
type AnswerEventReceived struct{ Event domain.AnswerEvent }

// AnswerStreamClosed follows the last AnswerEventReceived.
type AnswerStreamClosed struct{}

// DocumentsLoaded carries the library listing.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// DocumentSelected opens a document's chunks.
type DocumentSelected struct{ Document domain.Document }

// DocumentChunksLoaded carries the chunks of DocumentID. Views drop it when
// another document has been opened since.
type DocumentChunksLoaded struct {
	DocumentID string
	Chunks     []domain.Chunk
	Err        error
}

// DocumentDeleted reports the outcome of a delete.
type DocumentDeleted struct {
	DocumentID string
	Err        error
}
