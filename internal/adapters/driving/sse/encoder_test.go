package sse

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestMarshal(t *testing.T) {
	sources := []domain.Source{{Filename: "policy.md", Score: 0.912, Preview: "Refunds within 30 days..."}}

	tests := []struct {
		name     string
		event    domain.AnswerEvent
		expected string
	}{
		{
			name:     "delta",
			event:    domain.AnswerEvent{Type: domain.EventDelta, Text: "Thirty"},
			expected: `{"type":"delta","text":"Thirty"}`,
		},
		{
			name:     "meta",
			event:    domain.AnswerEvent{Type: domain.EventMeta, Sources: sources},
			expected: `{"type":"meta","sources":[{"filename":"policy.md","score":0.912,"preview":"Refunds within 30 days..."}]}`,
		},
		{
			name:     "meta without sources",
			event:    domain.AnswerEvent{Type: domain.EventMeta},
			expected: `{"type":"meta","sources":[]}`,
		},
		{
			name: "final",
			event: domain.AnswerEvent{
				Type:           domain.EventFinal,
				Text:           "Thirty days.",
				Grounded:       true,
				Sources:        sources,
				ModelProvider:  "ollama",
				ModelName:      "qwen2.5:7b",
				Timestamp:      time.Date(2026, 3, 1, 13, 0, 0, 123456789, time.FixedZone("CET", 3600)),
				ConversationID: "c-1",
			},
			expected: `{"type":"final","text":"Thirty days.","grounded":true,` +
				`"sources":[{"filename":"policy.md","score":0.912,"preview":"Refunds within 30 days..."}],` +
				`"model_provider":"ollama","model_name":"qwen2.5:7b",` +
				`"timestamp":"2026-03-01T12:00:00.123456789Z","conversation_id":"c-1"}`,
		},
		{
			name:     "error",
			event:    domain.AnswerEvent{Type: domain.EventError, Message: "generation failed"},
			expected: `{"type":"error","message":"generation failed"}`,
		},
		{
			name:     "done",
			event:    domain.AnswerEvent{Type: domain.EventDone},
			expected: `{"type":"done"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(data))
		})
	}
}

func TestMarshal_UnknownType(t *testing.T) {
	_, err := Marshal(domain.AnswerEvent{Type: "bogus"})
	assert.Error(t, err)
}

func TestEncoder_Frames(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	require.NoError(t, enc.Encode(domain.AnswerEvent{Type: domain.EventDelta, Text: "a"}))
	require.NoError(t, enc.Encode(domain.AnswerEvent{Type: domain.EventDone}))

	assert.Equal(t, "data: {\"type\":\"delta\",\"text\":\"a\"}\n\ndata: {\"type\":\"done\"}\n\n", buf.String())
}

func TestEncoder_FlushesEachFrame(t *testing.T) {
	rec := httptest.NewRecorder()
	enc := NewEncoder(rec)

	require.NoError(t, enc.Encode(domain.AnswerEvent{Type: domain.EventDelta, Text: "a"}))
	assert.True(t, rec.Flushed)
}

type failingWriter struct{ writes int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errors.New("broken pipe")
}

func TestEncoder_EncodeStreamStopsOnWriteError(t *testing.T) {
	pulled := 0
	stream := func(yield func(domain.AnswerEvent) bool) {
		for range 5 {
			pulled++
			if !yield(domain.AnswerEvent{Type: domain.EventDelta, Text: "x"}) {
				return
			}
		}
	}

	w := &failingWriter{}
	err := NewEncoder(w).EncodeStream(stream)
	require.Error(t, err)
	assert.Equal(t, 1, pulled)
	assert.Equal(t, 1, w.writes)
}
