package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var conversationCmd = &cobra.Command{
	Use:     "conversation",
	Aliases: []string{"conversations", "conv"},
	Short:   "Manage stored conversations",
}

var conversationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	Args:  cobra.NoArgs,
	RunE:  runConversationList,
}

var conversationShowCmd = &cobra.Command{
	Use:   "show [conversation-id]",
	Short: "Print a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationShow,
}

var conversationDeleteCmd = &cobra.Command{
	Use:   "delete [conversation-id]",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationDelete,
}

func init() {
	conversationCmd.AddCommand(conversationListCmd)
	conversationCmd.AddCommand(conversationShowCmd)
	conversationCmd.AddCommand(conversationDeleteCmd)
	rootCmd.AddCommand(conversationCmd)
}

func runConversationList(cmd *cobra.Command, _ []string) error {
	if conversationService == nil {
		return errConversationNotConfigured
	}

	convs, err := conversationService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	if len(convs) == 0 {
		cmd.Println("No conversations.")
		return nil
	}

	for i := range convs {
		title := convs[i].Title
		if title == "" {
			title = "(untitled)"
		}
		cmd.Printf("%s  %s  %3d messages  %s\n",
			convs[i].ID, convs[i].CreatedAt.Local().Format(timeLayout), convs[i].MessageCount, title)
	}
	return nil
}

func runConversationShow(cmd *cobra.Command, args []string) error {
	if conversationService == nil {
		return errConversationNotConfigured
	}

	conv, err := conversationService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get conversation: %w", err)
	}

	cmd.Printf("Conversation: %s\n", conv.ID)
	cmd.Printf("Started: %s\n", conv.CreatedAt.Local().Format(timeLayout))
	for i := range conv.Messages {
		m := &conv.Messages[i]
		cmd.Println()
		if m.ModelName != "" {
			cmd.Printf("[%s] %s:%s\n", m.Role, m.ModelProvider, m.ModelName)
		} else {
			cmd.Printf("[%s]\n", m.Role)
		}
		cmd.Println(m.Content)
		for _, s := range m.Sources {
			cmd.Printf("  - %s (%.2f)\n", s.Filename, s.Score)
		}
	}
	return nil
}

func runConversationDelete(cmd *cobra.Command, args []string) error {
	if conversationService == nil {
		return errConversationNotConfigured
	}

	if err := conversationService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	cmd.Printf("Conversation %s deleted.\n", args[0])
	return nil
}
