package cli

import (
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/mcp"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Let an AI assistant query your documents over MCP",
	Long: `Serve the document library to an MCP client.

Tools: ask (cited answer), retrieve (matching passages), list_documents.
Resources: sercha-rag://documents and sercha-rag://documents/{documentId}.

Without --port the server speaks JSON-RPC over stdin and stdout, which is what
desktop assistants launch. With --port it serves the streamable HTTP transport.

  sercha-rag mcp serve
  sercha-rag mcp serve --port 8765

Register the stdio form with your assistant:

  {"mcpServers": {"sercha-rag": {"command": "sercha-rag", "args": ["mcp", "serve"]}}}`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "serve HTTP on this port instead of stdio")
	mcpServeCmd.Flags().String("host", "localhost", "interface for the HTTP transport")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")

	server, err := mcp.NewServer(&mcp.Ports{
		Ask:          askService,
		Retrieval:    retrievalService,
		Document:     documentService,
		Conversation: conversationService,
		Defaults:     retrieveDefaults(),
	}, mcp.WithVersion(version))
	if err != nil {
		return err
	}

	if port <= 0 {
		return server.Run(cmd.Context())
	}
	return server.RunHTTP(cmd.Context(), net.JoinHostPort(host, strconv.Itoa(port)))
}

// retrieveDefaults returns the configured retrieval options, or zero values
// when settings are unavailable.
func retrieveDefaults() domain.RetrieveOptions {
	if settingsService == nil {
		return domain.RetrieveOptions{}
	}
	settings, err := settingsService.Get()
	if err != nil {
		return domain.RetrieveOptions{}
	}
	return domain.RetrieveOptions{TopK: settings.RAG.TopK, MinScore: settings.RAG.MinScore}
}
