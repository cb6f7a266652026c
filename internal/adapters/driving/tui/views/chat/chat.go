// Package chat provides the conversational question answering view for the TUI.
package chat

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Turn is one entry of the transcript.
type Turn struct {
	Role       domain.Role
	Text       string
	Model      string
	Sources    []domain.Source
	Failed     bool
	Ungrounded bool
}

// View is the chat view: a transcript, the sources of the last answer and a prompt.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.PromptInput
	sources    *list.SourceList
	statusbar  *status.Bar
	transcript viewport.Model

	askService driving.AskService
	ctx        context.Context

	models   []string
	modelIdx int

	turns          []Turn
	pending        *Turn
	conversationID string
	events         <-chan domain.AnswerEvent
	cancel         context.CancelFunc
	streaming      bool

	width  int
	height int
	ready  bool
	err    error
}

// NewView creates a new chat view. models may be nil, in which case the
// service default is used.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	askService driving.AskService,
	models driving.ModelRegistry,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:     s,
		keymap:     km,
		input:      input.NewPromptInput(s),
		sources:    list.NewSourceList(s),
		statusbar:  status.NewBar(s, km),
		transcript: viewport.New(80, 10),
		askService: askService,
		ctx:        context.Background(),
		width:      80,
		height:     24,
	}
	v.loadModels(models)
	return v
}

// loadModels flattens the registry into "provider:name" entries sorted by
// provider and selects the default model.
func (v *View) loadModels(models driving.ModelRegistry) {
	if models == nil {
		return
	}

	available := models.Available()
	providers := make([]domain.AIProvider, 0, len(available))
	for p := range available {
		providers = append(providers, p)
	}
	slices.Sort(providers)

	for _, p := range providers {
		for _, name := range available[p] {
			v.models = append(v.models, domain.ModelRef{Provider: p, Name: name}.String())
		}
	}

	if i := slices.Index(v.models, models.Default().String()); i >= 0 {
		v.modelIdx = i
	}
	v.statusbar.SetModel(v.Model())
}

// WithContext sets the context for the view. Answers are cancelled with it.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerStarted:
		return v.handleAnswerStarted(msg)

	case messages.AnswerEventReceived:
		v.handleEvent(msg.Event)
		return v, waitForEvent(v.events)

	case messages.AnswerStreamClosed:
		v.finishAnswer()
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()

	if v.streaming {
		if keymap.Matches(key, v.keymap.Stop) {
			v.Stop()
		}
		return v, nil
	}

	switch {
	case keymap.Matches(key, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case keymap.Matches(key, v.keymap.Send):
		question := strings.TrimSpace(v.input.Value())
		if question == "" {
			return v, nil
		}
		return v, v.ask(question)

	case keymap.Matches(key, v.keymap.NextModel):
		v.nextModel()
		return v, nil

	case keymap.Matches(key, v.keymap.NewChat):
		v.Reset()
		return v, nil

	case msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown:
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// ask appends the question to the transcript and opens the answer stream.
func (v *View) ask(question string) tea.Cmd {
	v.err = nil
	v.turns = append(v.turns, Turn{Role: domain.RoleUser, Text: question})
	v.pending = &Turn{Role: domain.RoleAssistant, Model: v.Model()}
	v.sources.SetSources(nil)
	v.input.Reset()
	v.streaming = true
	v.statusbar.SetMessage("")
	v.statusbar.SetState(status.StateThinking)
	v.refreshTranscript()

	ctx, cancel := context.WithCancel(v.ctx)
	v.cancel = cancel

	req := domain.AskRequest{
		Question:       question,
		ConversationID: v.conversationID,
		Model:          v.Model(),
	}
	askService := v.askService

	return func() tea.Msg {
		if askService == nil {
			return messages.AnswerStarted{Question: question, Err: ErrNoAskService}
		}

		stream, err := askService.Ask(ctx, req)
		if err != nil {
			return messages.AnswerStarted{Question: question, Err: err}
		}

		events := make(chan domain.AnswerEvent)
		go func() {
			defer close(events)
			for ev := range stream {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}()
		return messages.AnswerStarted{Question: question, Events: events}
	}
}

// waitForEvent reads the next event of the stream as a message.
func waitForEvent(events <-chan domain.AnswerEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return messages.AnswerStreamClosed{}
		}
		return messages.AnswerEventReceived{Event: ev}
	}
}

func (v *View) handleAnswerStarted(msg messages.AnswerStarted) (*View, tea.Cmd) {
	if msg.Err != nil {
		v.setError(msg.Err)
		v.finishAnswer()
		return v, nil
	}
	v.events = msg.Events
	return v, waitForEvent(v.events)
}

func (v *View) handleEvent(ev domain.AnswerEvent) {
	if v.pending == nil {
		return
	}
	// The question is already stored when the first event arrives.
	if ev.ConversationID != "" {
		v.conversationID = ev.ConversationID
	}

	switch ev.Type {
	case domain.EventMeta:
		v.pending.Sources = ev.Sources
		v.sources.SetSources(ev.Sources)

	case domain.EventDelta:
		v.pending.Text += ev.Text
		v.statusbar.SetState(status.StateStreaming)

	case domain.EventFinal:
		v.pending.Text = ev.Text
		v.pending.Sources = ev.Sources
		v.pending.Ungrounded = !ev.Grounded
		if ev.ModelProvider != "" {
			v.pending.Model = domain.ModelRef{Provider: ev.ModelProvider, Name: ev.ModelName}.String()
		}
		v.sources.SetSources(ev.Sources)

	case domain.EventError:
		v.pending.Failed = true
		v.setError(errors.New(ev.Message))

	case domain.EventDone:
	}
	v.refreshTranscript()
}

// finishAnswer commits the pending answer and releases the stream.
func (v *View) finishAnswer() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.events = nil
	v.streaming = false

	if v.pending != nil {
		if v.pending.Text != "" || v.pending.Failed {
			v.turns = append(v.turns, *v.pending)
		}
		if v.statusbar.State() != status.StateError && v.statusbar.State() != status.StateStopped {
			v.statusbar.SetState(status.StateAnswered)
			v.statusbar.SetSourceCount(len(v.pending.Sources))
		}
		v.pending = nil
	}
	v.input.Focus()
	v.refreshTranscript()
}

// Stop cancels the answer being generated. The partial answer is kept on
// screen but nothing is saved to the conversation.
func (v *View) Stop() {
	if !v.streaming || v.cancel == nil {
		return
	}
	v.cancel()
	v.statusbar.SetState(status.StateStopped)
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

func (v *View) nextModel() {
	if len(v.models) == 0 {
		return
	}
	v.modelIdx = (v.modelIdx + 1) % len(v.models)
	v.statusbar.SetModel(v.Model())
}

// refreshTranscript re-renders the transcript and scrolls to the latest turn.
func (v *View) refreshTranscript() {
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
}

func (v *View) renderTranscript() string {
	width := max(v.width-4, 20)
	text := lipgloss.NewStyle().Width(width)

	blocks := make([]string, 0, len(v.turns)+1)
	for _, t := range v.turns {
		blocks = append(blocks, v.renderTurn(t, text))
	}
	if v.pending != nil {
		pending := *v.pending
		if pending.Text == "" {
			pending.Text = "..."
		}
		blocks = append(blocks, v.renderTurn(pending, text))
	}

	if len(blocks) == 0 {
		return v.styles.Muted.Render("Ask anything about your uploaded documents.")
	}
	return strings.Join(blocks, "\n\n")
}

func (v *View) renderTurn(t Turn, text lipgloss.Style) string {
	if t.Role == domain.RoleUser {
		return v.styles.UserMessage.Render("You: ") + text.Render(t.Text)
	}

	header := "Assistant"
	if t.Model != "" {
		header += " (" + t.Model + ")"
	}
	body := v.styles.AssistantMessage.Render(text.Render(t.Text))
	if t.Ungrounded {
		body = v.styles.Ungrounded.Render(text.Render(t.Text))
	}
	if t.Failed && t.Text == "" {
		body = v.styles.Error.Render("  no answer")
	}

	lines := []string{v.styles.Subtitle.Render(header), body}
	if len(t.Sources) > 0 {
		names := make([]string, 0, len(t.Sources))
		for _, s := range t.Sources {
			names = append(names, s.Filename)
		}
		lines = append(lines, v.styles.Citation.Render("  Sources: "+strings.Join(names, ", ")))
	}
	return strings.Join(lines, "\n")
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := []string{
		v.styles.Title.Render("Sercha Chat"),
		"",
		v.transcript.View(),
		"",
	}
	if v.sources.Count() > 0 {
		sections = append(sections, v.sources.View(), "")
	}
	sections = append(sections, v.input.View(), "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	sourcesHeight := min(7, max(height/4, 3))
	v.input.SetWidth(width)
	v.sources.SetDimensions(width, sourcesHeight)
	v.statusbar.SetWidth(width)
	v.transcript.Width = max(width, 20)
	// Title, prompt, status bar and spacing take eight lines.
	v.transcript.Height = max(height-sourcesHeight-8, 3)
	v.refreshTranscript()
}

// Model returns the selected "provider:name" model, or "" for the service default.
func (v *View) Model() string {
	if len(v.models) == 0 {
		return ""
	}
	return v.models[v.modelIdx]
}

// Models returns the models that tab cycles through.
func (v *View) Models() []string {
	return v.models
}

// Turns returns the committed transcript.
func (v *View) Turns() []Turn {
	return v.turns
}

// ConversationID returns the conversation continued by the next question.
func (v *View) ConversationID() string {
	return v.conversationID
}

// Streaming reports whether an answer is in progress.
func (v *View) Streaming() bool {
	return v.streaming
}

// Sources returns the sources cited by the latest answer.
func (v *View) Sources() []domain.Source {
	return v.sources.Sources()
}

// State returns the status bar state.
func (v *View) State() status.State {
	return v.statusbar.State()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// SetQuestion sets the prompt text.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}

// Reset starts a new conversation. It has no effect while an answer streams.
func (v *View) Reset() {
	if v.streaming {
		return
	}
	v.turns = nil
	v.pending = nil
	v.conversationID = ""
	v.err = nil
	v.input.Reset()
	v.input.Focus()
	v.sources.SetSources(nil)
	v.statusbar.Clear()
	v.refreshTranscript()
}
