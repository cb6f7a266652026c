package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/mcp"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestMCPCmd_HasServe(t *testing.T) {
	names := make([]string, 0)
	for _, c := range mcpCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")

	port := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "p", port.Shorthand)
	assert.Equal(t, "0", port.DefValue)

	host := mcpServeCmd.Flags().Lookup("host")
	require.NotNil(t, host)
	assert.Equal(t, "localhost", host.DefValue)
}

func TestMCPServeCmd_MissingServices(t *testing.T) {
	SetServices(nil)

	_, err := runCommand("mcp", "serve")

	assert.ErrorIs(t, err, mcp.ErrMissingAskService)
}

func TestRetrieveDefaults(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.RAG.TopK = 7
	settings.RAG.MinScore = 0.6
	SetServices(&Services{Settings: &mockSettingsService{settings: settings}})
	defer SetServices(nil)

	assert.Equal(t, domain.RetrieveOptions{TopK: 7, MinScore: 0.6}, retrieveDefaults())
}

func TestRetrieveDefaults_NoSettings(t *testing.T) {
	SetServices(nil)

	assert.Equal(t, domain.RetrieveOptions{}, retrieveDefaults())
}
