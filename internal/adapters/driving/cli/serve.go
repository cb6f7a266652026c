package cli

import (
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/api"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/mcp"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// portScanRange is how many ports above the configured one --find-port tries.
const portScanRange = 100

var (
	serveAddr     string
	serveMCP      bool
	serveFindPort bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API serving questions, uploads, conversations and models.

Answers stream as server-sent events from POST /api/ask. The listen address
defaults to the server.addr setting.

Examples:
  sercha-rag serve
  sercha-rag serve --addr :9000 --mcp`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default from settings)")
	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "also serve the MCP endpoint at /mcp")
	serveCmd.Flags().BoolVar(&serveFindPort, "find-port", false, "use the next free port if the address is taken")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	switch {
	case askService == nil:
		return errAskNotConfigured
	case documentService == nil:
		return errDocumentNotConfigured
	case conversationService == nil:
		return errConversationNotConfigured
	case modelRegistry == nil:
		return errModelsNotConfigured
	}

	settings := domain.DefaultAppSettings()
	if settingsService != nil {
		current, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		settings = *current
	}

	addr := serveAddr
	if addr == "" {
		addr = settings.Server.Addr
	}
	if serveFindPort {
		free, err := nextFreeAddr(addr)
		if err != nil {
			return err
		}
		addr = free
	}

	opts := api.Options{
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: settings.Server.RateLimit,
			BurstSize:         settings.Server.RateBurst,
		},
	}
	if serveMCP {
		mcpServer, err := mcp.NewServer(&mcp.Ports{
			Ask:          askService,
			Retrieval:    retrievalService,
			Document:     documentService,
			Conversation: conversationService,
			Defaults:     domain.RetrieveOptions{TopK: settings.RAG.TopK, MinScore: settings.RAG.MinScore},
		})
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
		opts.Extra = map[string]http.Handler{"/mcp": mcpServer.Handler()}
	}

	server, err := api.NewServer(&api.Ports{
		Ask:          askService,
		Document:     documentService,
		Conversation: conversationService,
		Models:       modelRegistry,
		Limits:       settings.Ingest,
	}, opts)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	cmd.Printf("Listening on http://%s\n", addr)
	return server.Run(cmd.Context(), addr)
}

// nextFreeAddr returns addr, or the same host with the first free port above it.
func nextFreeAddr(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", addr, err)
	}
	start, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	port, err := findAvailablePort(host, start, start+portScanRange)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// findAvailablePort finds an available port in the given range.
func findAvailablePort(host string, startPort, endPort int) (int, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	for port := startPort; port <= endPort; port++ {
		listener, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port in range %d-%d", startPort, endPort)
}
