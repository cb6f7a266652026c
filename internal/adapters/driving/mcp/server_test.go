package mcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil ask service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingAskService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(requiredPorts())
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.Handler())
	})
}

func TestServer_Initialize(t *testing.T) {
	ctx := context.Background()
	ports := requiredPorts()
	ports.Document = &mockDocumentService{}
	server, err := NewServer(ports, WithVersion("1.2.3"))
	require.NoError(t, err)

	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := server.server.Connect(ctx, serverT, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	defer cs.Close()

	res := cs.InitializeResult()
	require.NotNil(t, res)
	assert.Equal(t, serverName, res.ServerInfo.Name)
	assert.Equal(t, "1.2.3", res.ServerInfo.Version)
	assert.Contains(t, res.Instructions, "uploaded")

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "ask")
	assert.Contains(t, names, "retrieve")
	assert.Contains(t, names, "list_documents")
}

func TestServer_ServeStopsWithContext(t *testing.T) {
	server, err := NewServer(requiredPorts())
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.serve(ctx, ln) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil ask service returns error", func(t *testing.T) {
		ports := &Ports{Retrieval: &mockRetrievalService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingAskService)
	})

	t.Run("nil retrieval service returns error", func(t *testing.T) {
		ports := &Ports{Ask: &mockAskService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingRetrievalService)
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := requiredPorts()
		ports.Document = &mockDocumentService{}
		ports.Conversation = &mockConversationService{}
		assert.NoError(t, ports.Validate())
	})
}
