package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure AskService implements the interface.
var _ driving.AskService = (*AskService)(nil)

// AskConfig holds the defaults applied to every question.
type AskConfig struct {
	TopK        int
	MinScore    float64
	Temperature float64
	MaxTokens   int
}

// AskService answers questions from the uploaded documents.
type AskService struct {
	cfg           AskConfig
	models        driving.ModelRegistry
	llms          driven.LLMProvider
	conversations driven.ConversationStore
	retriever     driving.RetrievalService
	assembler     *GroundingAssembler
	streamer      *AnswerStreamer
}

// NewAskService creates a new ask service.
func NewAskService(
	cfg AskConfig,
	models driving.ModelRegistry,
	llms driven.LLMProvider,
	conversations driven.ConversationStore,
	retriever driving.RetrievalService,
	assembler *GroundingAssembler,
	streamer *AnswerStreamer,
) *AskService {
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultTopK
	}
	return &AskService{
		cfg:           cfg,
		models:        models,
		llms:          llms,
		conversations: conversations,
		retriever:     retriever,
		assembler:     assembler,
		streamer:      streamer,
	}
}

// Ask validates the request, stores the question and returns the answer stream.
//
// Invalid input, an unknown model and an unknown conversation are returned
// before any event. A retrieval failure is logged and the answer proceeds
// ungrounded.
func (s *AskService) Ask(ctx context.Context, req domain.AskRequest) (driving.AnswerStream, error) {
	logger.Section("Ask")

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("question: %w", domain.ErrEmptyInput)
	}
	if req.TopK < 0 {
		return nil, fmt.Errorf("%w: top_k must not be negative", domain.ErrInvalidInput)
	}
	if req.MinScore != nil && (*req.MinScore < 0 || *req.MinScore > 1) {
		return nil, fmt.Errorf("%w: min_score must be within [0, 1]", domain.ErrInvalidInput)
	}

	ref, err := s.models.Resolve(req.Model)
	if err != nil {
		return nil, err
	}
	llm, err := s.llms.LLM(string(ref.Provider), ref.Name)
	if err != nil {
		return nil, err
	}
	logger.Debug("Model: %s", ref)

	conversation, err := s.loadConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	history := conversation.Messages

	if _, err := s.conversations.AppendMessage(ctx, conversation.ID, domain.MessageInput{
		Role:    domain.RoleUser,
		Content: question,
	}); err != nil {
		return nil, fmt.Errorf("store question: %w", err)
	}

	opts := domain.RetrieveOptions{TopK: s.cfg.TopK, MinScore: s.cfg.MinScore}
	if req.TopK > 0 {
		opts.TopK = req.TopK
	}
	if req.MinScore != nil {
		opts.MinScore = *req.MinScore
	}

	sources, err := s.retriever.Retrieve(ctx, question, opts)
	if err != nil {
		logger.Warn("Retrieval failed, answering ungrounded: %v", err)
		sources = nil
	}

	prompt := s.assembler.Assemble(question, history, sources)
	logger.Info("Answering in conversation %s (grounded=%t, excerpts=%d)",
		conversation.ID, prompt.Grounded, len(prompt.Sources))

	return s.streamer.Stream(ctx, StreamRequest{
		ConversationID: conversation.ID,
		Prompt:         prompt,
		LLM:            llm,
		MinScore:       opts.MinScore,
		Options: driven.ChatOptions{
			MaxTokens:   s.cfg.MaxTokens,
			Temperature: s.cfg.Temperature,
		},
	}), nil
}

func (s *AskService) loadConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	if id == "" {
		conversation, err := s.conversations.CreateConversation(ctx)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		return conversation, nil
	}
	return s.conversations.GetConversation(ctx, id)
}
