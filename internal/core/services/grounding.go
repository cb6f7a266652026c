package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// GroundingConfig bounds what an assembled prompt may contain.
type GroundingConfig struct {
	// HistoryMessages is the number of trailing conversation messages kept.
	HistoryMessages int

	// ContextChunks is the maximum number of excerpts.
	ContextChunks int

	// ContextChars truncates each excerpt, in runes.
	ContextChars int

	// MaxPromptTokens bounds the whole prompt. Zero disables the budget.
	MaxPromptTokens int
}

// GroundingConfigFrom extracts the prompt limits from RAG settings.
func GroundingConfigFrom(settings domain.RAGSettings) GroundingConfig {
	return GroundingConfig{
		HistoryMessages: settings.HistoryMessages,
		ContextChunks:   settings.ContextChunks,
		ContextChars:    settings.ContextChars,
		MaxPromptTokens: settings.MaxPromptTokens,
	}
}

// Prompt is an assembled chat request.
type Prompt struct {
	// Messages are sent to the model in order.
	Messages []driven.ChatMessage

	// Grounded reports whether any source was supplied.
	Grounded bool

	// Sources are the excerpts included in the prompt, best first.
	Sources []domain.SourceReference
}

// GroundingAssembler builds prompts from retrieved sources and conversation history.
type GroundingAssembler struct {
	cfg     GroundingConfig
	prompts driven.PromptStore
	tokens  driven.TokenCounter
}

// NewGroundingAssembler creates an assembler. The prompt store and token
// counter are optional.
func NewGroundingAssembler(
	cfg GroundingConfig,
	prompts driven.PromptStore,
	tokens driven.TokenCounter,
) *GroundingAssembler {
	if cfg.HistoryMessages < 0 {
		cfg.HistoryMessages = 0
	}
	if cfg.ContextChunks <= 0 {
		cfg.ContextChunks = domain.DefaultContextChunks
	}
	if cfg.ContextChars <= 0 {
		cfg.ContextChars = domain.DefaultContextChars
	}
	return &GroundingAssembler{cfg: cfg, prompts: prompts, tokens: tokens}
}

// Assemble builds the prompt for query.
//
// With sources, the system message restricts the model to the numbered
// excerpts. Without sources, it instructs the model to say that nothing
// relevant was found. The query is always the last message.
func (a *GroundingAssembler) Assemble(
	query string, history []domain.Message, sources []domain.SourceReference,
) Prompt {
	excerpts := sources
	if len(excerpts) > a.cfg.ContextChunks {
		excerpts = excerpts[:a.cfg.ContextChunks]
	}
	history = trailingMessages(history, a.cfg.HistoryMessages)

	prompt := a.build(query, history, excerpts)
	if a.tokens == nil || a.cfg.MaxPromptTokens <= 0 {
		return prompt
	}

	for a.count(prompt) > a.cfg.MaxPromptTokens {
		switch {
		case len(excerpts) > 1:
			excerpts = excerpts[:len(excerpts)-1]
		case len(history) > 0:
			history = history[1:]
		default:
			logger.Warn("Prompt exceeds %d tokens with a single excerpt", a.cfg.MaxPromptTokens)
			return prompt
		}
		prompt = a.build(query, history, excerpts)
	}
	return prompt
}

func (a *GroundingAssembler) build(
	query string, history []domain.Message, excerpts []domain.SourceReference,
) Prompt {
	messages := make([]driven.ChatMessage, 0, len(history)+2)

	if len(excerpts) > 0 {
		var sb strings.Builder
		sb.WriteString(a.loadPrompt(driven.PromptGroundedSystem))
		sb.WriteString("\n\nDocument excerpts:\n")
		for i, src := range excerpts {
			fmt.Fprintf(&sb, "\n[%d] (source: %s)\n%s\n", i+1, src.Filename, truncateRunes(src.Content, a.cfg.ContextChars))
		}
		messages = append(messages, driven.ChatMessage{Role: string(domain.RoleSystem), Content: sb.String()})
	} else {
		messages = append(messages, driven.ChatMessage{
			Role:    string(domain.RoleSystem),
			Content: a.loadPrompt(driven.PromptUngroundedSystem),
		})
	}

	for _, m := range history {
		messages = append(messages, driven.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, driven.ChatMessage{Role: string(domain.RoleUser), Content: query})

	return Prompt{
		Messages: messages,
		Grounded: len(excerpts) > 0,
		Sources:  excerpts,
	}
}

func (a *GroundingAssembler) count(p Prompt) int {
	total := 0
	for _, m := range p.Messages {
		total += a.tokens.Count(m.Content)
	}
	return total
}

// loadPrompt returns the named prompt, falling back to the built-in text.
func (a *GroundingAssembler) loadPrompt(name string) string {
	if a.prompts != nil {
		prompt, err := a.prompts.Load(name)
		if err == nil && strings.TrimSpace(prompt) != "" {
			return prompt
		}
		if err != nil {
			logger.Warn("Failed to load prompt %s: %v", name, err)
		}
	}
	return driven.DefaultPrompts()[name]
}

// trailingMessages returns the last n messages, oldest first.
func trailingMessages(messages []domain.Message, n int) []domain.Message {
	if n <= 0 || len(messages) == 0 {
		return nil
	}
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}

// truncateRunes shortens s to at most n runes, marking the cut with "...".
func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}
