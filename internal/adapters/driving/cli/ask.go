package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/sse"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	askConversation string
	askModel        modelFlag
	askTopK         int
	askMinScore     float64
	askSSE          bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Retrieves the passages most relevant to the question and streams an
answer grounded in them.

The answer is printed as it is generated, followed by the cited sources and
the conversation id. Pass --conversation with that id to ask a follow-up.

Examples:
  sercha-rag ask "What is the refund policy?"
  sercha-rag ask --model openai:gpt-4o-mini "Summarise the contract"
  sercha-rag ask --conversation 3f2b... "And for business customers?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askConversation, "conversation", "c", "", "continue an existing conversation")
	askCmd.Flags().VarP(&askModel, "model", "m", "generation model (default from settings)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages to retrieve (0 = configured default)")
	askCmd.Flags().Float64Var(&askMinScore, "min-score", 0, "minimum passage score (unset = configured default)")
	askCmd.Flags().BoolVar(&askSSE, "sse", false, "write raw server-sent event frames")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askService == nil {
		return errAskNotConfigured
	}

	req := domain.AskRequest{
		Question:       strings.Join(args, " "),
		ConversationID: askConversation,
		Model:          askModel.String(),
		TopK:           askTopK,
	}
	if cmd.Flags().Changed("min-score") {
		minScore := askMinScore
		req.MinScore = &minScore
	}

	stream, err := askService.Ask(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askSSE {
		return sse.NewEncoder(cmd.OutOrStdout()).EncodeStream(stream)
	}

	out := cmd.OutOrStdout()
	var final *domain.AnswerEvent
	var streamErr error
	for ev := range stream {
		switch ev.Type {
		case domain.EventDelta:
			fmt.Fprint(out, ev.Text)
		case domain.EventFinal:
			final = &ev
		case domain.EventError:
			streamErr = errors.New(ev.Message)
		}
	}
	fmt.Fprintln(out)

	if streamErr != nil {
		return fmt.Errorf("answer failed: %w", streamErr)
	}
	if final != nil {
		printAnswerFooter(out, final)
	}
	return nil
}

func printAnswerFooter(out io.Writer, final *domain.AnswerEvent) {
	fmt.Fprintln(out)
	if len(final.Sources) > 0 {
		fmt.Fprintln(out, "Sources:")
		for _, s := range final.Sources {
			fmt.Fprintf(out, "  - %s (%.2f)\n", s.Filename, s.Score)
		}
	} else if !final.Grounded {
		fmt.Fprintln(out, "No relevant passages found.")
	}
	if final.ModelProvider != "" {
		fmt.Fprintf(out, "Model: %s:%s\n", final.ModelProvider, final.ModelName)
	}
	fmt.Fprintf(out, "Conversation: %s\n", final.ConversationID)
}
