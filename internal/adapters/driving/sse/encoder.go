// Package sse writes answer streams as server-sent events.
//
// Each event is one frame of the form "data: <json>\n\n". Payload fields
// appear in a fixed order per event type so clients can rely on the
// byte layout.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// ContentType is the media type of an event stream.
const ContentType = "text/event-stream"

type deltaPayload struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type metaPayload struct {
	Type    string          `json:"type"`
	Sources []domain.Source `json:"sources"`
}

type finalPayload struct {
	Type           string          `json:"type"`
	Text           string          `json:"text"`
	Grounded       bool            `json:"grounded"`
	Sources        []domain.Source `json:"sources"`
	ModelProvider  string          `json:"model_provider"`
	ModelName      string          `json:"model_name"`
	Timestamp      string          `json:"timestamp"`
	ConversationID string          `json:"conversation_id"`
}

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type donePayload struct {
	Type string `json:"type"`
}

// Encoder writes answer events to w.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder creates an encoder. If w is an http.Flusher every frame is
// flushed as soon as it is written.
func NewEncoder(w io.Writer) *Encoder {
	enc := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		enc.flusher = f
	}
	return enc
}

// Encode writes a single event frame.
func (e *Encoder) Encode(ev domain.AnswerEvent) error {
	data, err := Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

// EncodeStream writes every event of stream. It stops at the first write
// error, which ends the iteration and so cancels generation upstream.
func (e *Encoder) EncodeStream(stream driving.AnswerStream) error {
	for ev := range stream {
		if err := e.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

// Marshal returns the JSON payload of an event without framing.
func Marshal(ev domain.AnswerEvent) ([]byte, error) {
	var payload any
	switch ev.Type {
	case domain.EventDelta:
		payload = deltaPayload{Type: string(ev.Type), Text: ev.Text}
	case domain.EventMeta:
		payload = metaPayload{Type: string(ev.Type), Sources: nonNil(ev.Sources)}
	case domain.EventFinal:
		payload = finalPayload{
			Type:           string(ev.Type),
			Text:           ev.Text,
			Grounded:       ev.Grounded,
			Sources:        nonNil(ev.Sources),
			ModelProvider:  ev.ModelProvider,
			ModelName:      ev.ModelName,
			Timestamp:      ev.Timestamp.UTC().Format(time.RFC3339Nano),
			ConversationID: ev.ConversationID,
		}
	case domain.EventError:
		payload = errorPayload{Type: string(ev.Type), Message: ev.Message}
	case domain.EventDone:
		payload = donePayload{Type: string(ev.Type)}
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	return data, nil
}

func nonNil(sources []domain.Source) []domain.Source {
	if sources == nil {
		return []domain.Source{}
	}
	return sources
}
