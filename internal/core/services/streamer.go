package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// ApologyMessage is the user-facing text of an error event.
const ApologyMessage = "Sorry, something went wrong while generating the answer. Please try again."

// errEmptyCompletion marks a stream that finished without any text.
var errEmptyCompletion = errors.New("empty completion")

// StreamRequest is one answer to generate.
type StreamRequest struct {
	ConversationID string
	Prompt         Prompt
	LLM            driven.LLMService
	Options        driven.ChatOptions

	// MinScore is the threshold the prompt's sources were retrieved with.
	MinScore float64
}

// AnswerStreamer drives the generation of one answer through the states
// started, streaming and finalized or failed, and persists the finalized
// answer.
type AnswerStreamer struct {
	conversations driven.ConversationStore
	emitMeta      bool
}

// NewAnswerStreamer creates a streamer that persists answers to conversations.
// With emitMeta set, the cited sources are sent before the first delta.
func NewAnswerStreamer(conversations driven.ConversationStore, emitMeta bool) *AnswerStreamer {
	return &AnswerStreamer{conversations: conversations, emitMeta: emitMeta}
}

// answerRun tracks the state of one answer.
type answerRun struct {
	state domain.AnswerState
}

func (r *answerRun) advance(next domain.AnswerState) {
	if r.state == next {
		return
	}
	if !r.state.CanTransition(next) {
		logger.Warn("Ignoring answer transition %s -> %s", r.state, next)
		return
	}
	logger.Debug("Answer %s -> %s", r.state, next)
	r.state = next
}

// Stream returns the event sequence for req.
//
// Every event carries the conversation id. Fragments are emitted as delta
// events as soon as they arrive. On success the assistant message is
// persisted before the final event. A generation
// error, a broken stream or an empty completion produces an error event and
// nothing is persisted. If the consumer stops iterating or ctx is cancelled,
// generation is abandoned without further events or writes.
func (s *AnswerStreamer) Stream(ctx context.Context, req StreamRequest) driving.AnswerStream {
	return func(yield func(domain.AnswerEvent) bool) {
		run := &answerRun{state: domain.AnswerStarted}
		sources := FinalSources(req.Prompt.Sources, req.MinScore)
		emit := func(ev domain.AnswerEvent) bool {
			ev.ConversationID = req.ConversationID
			return yield(ev)
		}

		fail := func(cause error) {
			run.advance(domain.AnswerFailed)
			logger.Error("Answer for conversation %s failed: %v", req.ConversationID, cause)
			if emit(domain.AnswerEvent{Type: domain.EventError, Message: ApologyMessage}) {
				emit(domain.AnswerEvent{Type: domain.EventDone})
			}
		}

		if s.emitMeta {
			if !emit(domain.AnswerEvent{Type: domain.EventMeta, Sources: sources}) {
				logger.Debug("Consumer left before generation started")
				return
			}
		}

		var text strings.Builder
		for fragment, err := range req.LLM.ChatStream(ctx, req.Prompt.Messages, req.Options) {
			if ctx.Err() != nil {
				logger.Debug("Answer cancelled after %d bytes", text.Len())
				return
			}
			if err != nil {
				fail(err)
				return
			}
			if fragment == "" {
				continue
			}
			run.advance(domain.AnswerStreaming)
			text.WriteString(fragment)
			if !emit(domain.AnswerEvent{Type: domain.EventDelta, Text: fragment}) {
				logger.Debug("Consumer disconnected after %d bytes", text.Len())
				return
			}
		}
		if ctx.Err() != nil {
			logger.Debug("Answer cancelled after %d bytes", text.Len())
			return
		}

		answer := text.String()
		if strings.TrimSpace(answer) == "" {
			fail(errEmptyCompletion)
			return
		}

		msg, err := s.conversations.AppendMessage(ctx, req.ConversationID, domain.MessageInput{
			Role:          domain.RoleAssistant,
			Content:       answer,
			ModelProvider: req.LLM.Provider(),
			ModelName:     req.LLM.ModelName(),
			Sources:       sources,
		})
		if err != nil {
			fail(err)
			return
		}
		run.advance(domain.AnswerFinalized)

		final := domain.AnswerEvent{
			Type:           domain.EventFinal,
			Text:           answer,
			Grounded:       len(sources) > 0,
			Sources:        sources,
			ModelProvider:  msg.ModelProvider,
			ModelName:      msg.ModelName,
			Timestamp:      msg.CreatedAt.UTC(),
		}
		if emit(final) {
			emit(domain.AnswerEvent{Type: domain.EventDone})
		}
	}
}

// FinalSources converts ranked references into cited sources: one per
// filename with its best score rounded to three decimals, in rank order.
// Rounding never takes a score that met minScore below it.
func FinalSources(refs []domain.SourceReference, minScore float64) []domain.Source {
	sources := make([]domain.Source, 0, len(refs))
	index := make(map[string]int, len(refs))
	for _, ref := range refs {
		score := roundScore(ref.Score, minScore)
		if i, ok := index[ref.Filename]; ok {
			if score > sources[i].Score {
				sources[i].Score = score
				sources[i].Preview = truncateRunes(ref.Content, domain.DefaultPreviewChars)
			}
			continue
		}
		index[ref.Filename] = len(sources)
		sources = append(sources, domain.Source{
			Filename: ref.Filename,
			Score:    score,
			Preview:  truncateRunes(ref.Content, domain.DefaultPreviewChars),
		})
	}
	return sources
}

func roundScore(score, minScore float64) float64 {
	rounded := math.Round(score*1000) / 1000
	if rounded < minScore && score >= minScore {
		return minScore
	}
	return rounded
}
