// Package menu provides the start screen of the chat TUI.
package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Item is one entry of the start screen.
type Item struct {
	Label string
	Hint  string
	Key   string
	View  messages.ViewType
	Quit  bool
}

// Library summarises what the chat can draw answers from.
type Library struct {
	Documents int
	Chunks    int
	Loaded    bool
}

// View is the start screen: the library summary, the active model and the entries.
type View struct {
	styles   *styles.Styles
	items    []Item
	selected int
	library  Library
	model    string
	width    int
	height   int
	ready    bool
}

// NewView creates the start screen.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles: s,
		items: []Item{
			{Label: "Chat", Hint: "ask questions grounded in your documents", Key: "c", View: messages.ViewChat},
			{Label: "Documents", Hint: "browse and delete uploaded files", Key: "d", View: messages.ViewDocuments},
			{Label: "Help", Hint: "key bindings", Key: "?", View: messages.ViewHelp},
			{Label: "Quit", Key: "q", Quit: true},
		},
		width:  80,
		height: 24,
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles navigation and shortcut keys.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "up", "k":
			if v.selected > 0 {
				v.selected--
			}
		case "down", "j":
			if v.selected < len(v.items)-1 {
				v.selected++
			}
		case "enter":
			return v, v.choose(v.items[v.selected])
		default:
			for i, item := range v.items {
				if item.Key == key {
					v.selected = i
					return v, v.choose(item)
				}
			}
		}
	}

	return v, nil
}

func (v *View) choose(item Item) tea.Cmd {
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg {
		return messages.ViewChanged{View: item.View}
	}
}

// View renders the start screen.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Sercha"))
	b.WriteString("  ")
	b.WriteString(v.styles.Subtitle.Render("Ask your documents"))
	b.WriteString("\n\n")
	b.WriteString(v.summary())
	b.WriteString("\n\n")

	for i, item := range v.items {
		cursor, style := "  ", v.styles.Normal
		if i == v.selected {
			cursor, style = "> ", v.styles.Selected
		}
		line := cursor + style.Render(item.Label)
		if item.Hint != "" {
			line += "  " + v.styles.Muted.Render(item.Hint)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] move  [enter] open  [c] chat  [d] documents  [?] help  [q] quit"))
	return b.String()
}

func (v *View) summary() string {
	var lines []string
	switch {
	case !v.library.Loaded:
		lines = append(lines, v.styles.Muted.Render("Loading library..."))
	case v.library.Documents == 0:
		lines = append(lines, v.styles.Warning.Render("No documents uploaded. Answers will not be grounded."))
	default:
		lines = append(lines, v.styles.Normal.Render(
			fmt.Sprintf("%d documents, %d chunks indexed", v.library.Documents, v.library.Chunks)))
	}
	if v.model != "" {
		lines = append(lines, v.styles.Muted.Render("Model: "+v.model))
	}
	return strings.Join(lines, "\n")
}

// SetDocuments updates the library summary from a document listing.
func (v *View) SetDocuments(docs []domain.Document) {
	lib := Library{Documents: len(docs), Loaded: true}
	for _, d := range docs {
		lib.Chunks += d.ChunkCount
	}
	v.library = lib
}

// SetModel sets the model shown under the summary.
func (v *View) SetModel(model string) {
	v.model = model
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Items returns the menu items.
func (v *View) Items() []Item {
	return v.items
}

// Selected returns the currently selected index.
func (v *View) Selected() int {
	return v.selected
}

// Library returns the current library summary.
func (v *View) Library() Library {
	return v.library
}
