package domain

import "time"

// EventType identifies an element of a streamed answer.
type EventType string

// Answer event types, in the order they may appear on a stream.
const (
	EventMeta  EventType = "meta"
	EventDelta EventType = "delta"
	EventFinal EventType = "final"
	EventError EventType = "error"
	EventDone  EventType = "done"
)

// AnswerEvent is one element of a streamed answer.
// Which fields are meaningful depends on Type.
type AnswerEvent struct {
	Type EventType

	// Text is the fragment for delta events and the full answer for final events.
	Text string

	// Grounded reports whether any source met the score threshold (final only).
	Grounded bool

	// Sources cited by the answer (meta and final).
	Sources []Source

	ModelProvider string
	ModelName     string
	Timestamp     time.Time

	// ConversationID is set on every event of an answer.
	ConversationID string

	// Message is the user-facing error text (error only).
	Message string
}

// IsTerminal reports whether no further content events follow.
func (e AnswerEvent) IsTerminal() bool {
	return e.Type == EventDone
}

// AnswerState is the lifecycle state of a streamed answer.
type AnswerState string

// Answer states. Finalized and Failed are terminal.
const (
	AnswerStarted   AnswerState = "started"
	AnswerStreaming AnswerState = "streaming"
	AnswerFinalized AnswerState = "finalized"
	AnswerFailed    AnswerState = "failed"
)

// IsTerminal reports whether the state admits no further transitions.
func (s AnswerState) IsTerminal() bool {
	return s == AnswerFinalized || s == AnswerFailed
}

// CanTransition reports whether moving from s to next is allowed.
func (s AnswerState) CanTransition(next AnswerState) bool {
	switch s {
	case AnswerStarted:
		return next == AnswerStreaming || next == AnswerFailed
	case AnswerStreaming:
		return next == AnswerFinalized || next == AnswerFailed
	default:
		return false
	}
}

// AskRequest is a question submitted for a grounded answer.
type AskRequest struct {
	// Question is the user's query. Required.
	Question string

	// ConversationID continues an existing conversation. Empty starts a new one.
	ConversationID string

	// Model selects the generator as "provider:name". Empty uses the default.
	Model string

	// TopK overrides the configured retrieval depth when > 0.
	TopK int

	// MinScore overrides the configured threshold when non-nil.
	MinScore *float64
}

// ModelRef identifies a generation model.
type ModelRef struct {
	Provider AIProvider
	Name     string
}

// String returns the "provider:name" form.
func (m ModelRef) String() string {
	return string(m.Provider) + ":" + m.Name
}
