package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newTestApp(t *testing.T, ask *MockAskService, docs *MockDocumentService) *App {
	t.Helper()
	app, err := NewApp(NewPorts(ask, docs, MockModelRegistry{}))
	require.NoError(t, err)
	app.SetDimensions(100, 40)
	return app
}

// drive feeds cmd results back into the app until no command remains.
// Batched and quit commands are not followed.
func drive(t *testing.T, app *App, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		require.Less(t, i, 100, "command loop did not terminate")
		msg := cmd()
		if _, ok := msg.(tea.BatchMsg); ok {
			return
		}
		_, cmd = app.Update(msg)
	}
}

func TestNewApp(t *testing.T) {
	app, err := NewApp(NewPorts(&MockAskService{}, &MockDocumentService{}, nil))

	require.NoError(t, err)
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(NewPorts(nil, &MockDocumentService{}, nil))

	require.ErrorIs(t, err, ErrMissingAskService)
	assert.Nil(t, app)
}

func TestApp_Init(t *testing.T) {
	app := newTestApp(t, &MockAskService{}, &MockDocumentService{})

	assert.NotNil(t, app.Init())
}

func TestApp_WindowSize(t *testing.T) {
	app, err := NewApp(NewPorts(&MockAskService{}, &MockDocumentService{}, nil))
	require.NoError(t, err)

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 90, Height: 30})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
	assert.True(t, app.Chat().Ready())
	assert.Contains(t, app.View(), "Ask your documents")
}

func TestApp_MenuToChatAndAsk(t *testing.T) {
	ask := &MockAskService{Events: []domain.AnswerEvent{
		{Type: domain.EventDelta, Text: "Fourteen days."},
		{
			Type:           domain.EventFinal,
			Text:           "Fourteen days.",
			Sources:        []domain.Source{{Filename: "handbook.md", Score: 0.8}},
			ModelProvider:  domain.AIProviderOllama,
			ModelName:      "qwen2.5:7b",
			ConversationID: "conv-9",
		},
		{Type: domain.EventDone},
	}}
	app := newTestApp(t, ask, &MockDocumentService{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	// The chat view's init command starts the cursor blink loop; it is not followed.
	app.Update(cmd())
	require.Equal(t, messages.ViewChat, app.CurrentView())

	for _, r := range "refunds?" {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drive(t, app, cmd)

	require.Len(t, ask.Requests, 1)
	assert.Equal(t, "refunds?", ask.Requests[0].Question)
	assert.Equal(t, "ollama:qwen2.5:7b", ask.Requests[0].Model)
	assert.Equal(t, "conv-9", app.Chat().ConversationID())
	assert.Contains(t, app.View(), "Fourteen days.")
	assert.Contains(t, app.View(), "handbook.md")
}

func TestApp_AskError(t *testing.T) {
	app := newTestApp(t, &MockAskService{Err: domain.ErrUnknownModel}, &MockDocumentService{})
	app.Update(messages.ViewChanged{View: messages.ViewChat})
	app.Chat().SetQuestion("question")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drive(t, app, cmd)

	assert.ErrorIs(t, app.Err(), domain.ErrUnknownModel)
	assert.False(t, app.Chat().Streaming())
}

func TestApp_StreamContinuesInOtherViews(t *testing.T) {
	app := newTestApp(t, &MockAskService{}, &MockDocumentService{})

	events := make(chan domain.AnswerEvent, 2)
	events <- domain.AnswerEvent{Type: domain.EventDelta, Text: "partial"}
	close(events)

	app.Update(messages.ViewChanged{View: messages.ViewChat})
	app.Chat().SetQuestion("q")
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app.Update(messages.ViewChanged{View: messages.ViewDocuments})

	_, cmd := app.Update(messages.AnswerStarted{Question: "q", Events: events})
	drive(t, app, cmd)

	assert.False(t, app.Chat().Streaming())
	require.Len(t, app.Chat().Turns(), 2)
	assert.Equal(t, "partial", app.Chat().Turns()[1].Text)
}

func TestApp_DocumentsFlow(t *testing.T) {
	docs := &MockDocumentService{
		Docs: []domain.Document{
			{ID: "doc-1", Filename: "handbook.md", ChunkCount: 1, UploadedAt: time.Now()},
		},
		ChunkList: []domain.Chunk{{ID: "c0", DocumentID: "doc-1", Index: 0, Content: "Refunds take 14 days."}},
	}
	app := newTestApp(t, &MockAskService{}, docs)

	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewDocuments})
	drive(t, app, cmd)
	require.Equal(t, messages.ViewDocuments, app.CurrentView())
	assert.Len(t, app.Documents().Documents(), 1)
	assert.Contains(t, app.View(), "handbook.md")

	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drive(t, app, cmd)

	require.Equal(t, messages.ViewDocContent, app.CurrentView())
	assert.Len(t, app.DocContent().Chunks(), 1)
	assert.Contains(t, app.View(), "Refunds take 14 days.")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	drive(t, app, cmd)
	assert.Equal(t, messages.ViewDocuments, app.CurrentView())

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	drive(t, app, cmd)
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_HelpView(t *testing.T) {
	app := newTestApp(t, &MockAskService{}, &MockDocumentService{})

	app.Update(messages.ViewChanged{View: messages.ViewHelp})
	out := app.View()

	assert.Contains(t, out, "Help")
	assert.Contains(t, out, "ctrl+x")
	assert.Contains(t, out, "new chat")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newTestApp(t, &MockAskService{}, &MockDocumentService{})
	app.Update(messages.ViewChanged{View: messages.ViewChat})

	app.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, app.Err(), "boom")
	assert.EqualError(t, app.Chat().Err(), "boom")
}

func TestApp_Quit(t *testing.T) {
	app := newTestApp(t, &MockAskService{}, &MockDocumentService{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = app.Update(messages.Quit{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_WithContext(t *testing.T) {
	app := newTestApp(t, &MockAskService{}, &MockDocumentService{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.Equal(t, app, app.WithContext(ctx))
}

func TestApp_MenuSummarisesLibrary(t *testing.T) {
	docs := &MockDocumentService{Docs: []domain.Document{
		{ID: "d1", Filename: "handbook.md", ChunkCount: 3},
		{ID: "d2", Filename: "faq.txt", ChunkCount: 2},
	}}
	app := newTestApp(t, &MockAskService{}, docs)

	assert.Contains(t, app.View(), "Model: ollama:qwen2.5:7b")
	assert.Contains(t, app.View(), "Loading library")

	drive(t, app, app.Documents().Load())

	assert.Equal(t, menu.Library{Documents: 2, Chunks: 5, Loaded: true}, app.Menu().Library())
	assert.Contains(t, app.View(), "2 documents, 5 chunks indexed")
}

func TestApp_MenuWarnsWhenLibraryEmpty(t *testing.T) {
	app := newTestApp(t, &MockAskService{}, &MockDocumentService{})

	drive(t, app, app.Documents().Load())

	assert.Contains(t, app.View(), "No documents uploaded")
}
