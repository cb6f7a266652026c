// Package doccontent shows the indexed chunks of one document.
package doccontent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// ErrNoDocumentService is returned when no document service is configured.
var ErrNoDocumentService = errors.New("document service not available")

// View lays a document's chunks out in a scrollable pane. n and p jump
// between chunks; the chunk under the cursor has its header highlighted.
type View struct {
	styles          *styles.Styles
	documentService driving.DocumentService
	ctx             context.Context
	pane            viewport.Model

	document *domain.Document
	chunks   []domain.Chunk
	lines    []string
	starts   []int // line of each chunk header
	cursor   int
	chars    int
	loading  bool
	err      error

	width  int
	height int
}

// NewView creates a new document content view.
func NewView(s *styles.Styles, documentService driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	v := &View{
		styles:          s,
		documentService: documentService,
		ctx:             context.Background(),
		pane:            viewport.New(80, 18),
	}
	v.SetDimensions(80, 24)
	return v
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// SetDocument switches to doc and loads its chunks.
func (v *View) SetDocument(doc *domain.Document) tea.Cmd {
	v.document = doc
	v.chunks = nil
	v.err = nil
	v.layout()
	v.pane.GotoTop()

	v.loading = true
	svc, ctx := v.documentService, v.ctx
	return func() tea.Msg {
		if doc == nil || svc == nil {
			return messages.DocumentChunksLoaded{Err: ErrNoDocumentService}
		}
		chunks, err := svc.Chunks(ctx, doc.ID)
		return messages.DocumentChunksLoaded{DocumentID: doc.ID, Chunks: chunks, Err: err}
	}
}

// Update handles messages for the document content view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		return v, v.handleKey(msg)

	case messages.DocumentChunksLoaded:
		if v.document != nil && msg.DocumentID != "" && msg.DocumentID != v.document.ID {
			return v, nil
		}
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.chunks = msg.Chunks
			v.layout()
			v.pane.GotoTop()
		}

	case messages.ErrorOccurred:
		v.err = msg.Err
	}
	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		return func() tea.Msg { return messages.ViewChanged{View: messages.ViewDocuments} }
	case "n":
		v.jump(v.cursor + 1)
		return nil
	case "p":
		v.jump(v.cursor - 1)
		return nil
	case "home", "g":
		v.pane.GotoTop()
	case "end", "G":
		v.pane.GotoBottom()
	default:
		var cmd tea.Cmd
		before := v.pane.YOffset
		v.pane, cmd = v.pane.Update(msg)
		if v.pane.YOffset == before {
			return cmd
		}
	}
	v.follow()
	return nil
}

// jump puts chunk i at the top of the pane, as far as the pane can scroll.
func (v *View) jump(i int) {
	if i < 0 || i >= len(v.starts) {
		return
	}
	v.cursor = i
	v.pane.SetYOffset(v.starts[i])
	v.render()
}

// follow moves the cursor to the chunk whose header is at or above the top line.
func (v *View) follow() {
	cursor := 0
	for i, start := range v.starts {
		if start > v.pane.YOffset {
			break
		}
		cursor = i
	}
	if cursor != v.cursor {
		v.cursor = cursor
		v.render()
	}
}

// layout wraps the chunks to the pane width and records where each one starts.
func (v *View) layout() {
	v.lines, v.starts, v.cursor, v.chars = nil, nil, 0, 0
	width := max(v.width-4, 20)

	for i, c := range v.chunks {
		if i > 0 {
			v.lines = append(v.lines, "")
		}
		v.starts = append(v.starts, len(v.lines))
		v.lines = append(v.lines, fmt.Sprintf("[chunk %d]", c.Index))
		v.chars += utf8.RuneCountInString(c.Content)
		for _, line := range strings.Split(c.Content, "\n") {
			r := []rune(line)
			for len(r) > width {
				v.lines = append(v.lines, string(r[:width]))
				r = r[width:]
			}
			v.lines = append(v.lines, string(r))
		}
	}
	v.render()
}

func (v *View) render() {
	header := -1
	if v.cursor < len(v.starts) {
		header = v.starts[v.cursor]
	}
	out := make([]string, len(v.lines))
	for i, line := range v.lines {
		switch {
		case i == header:
			out[i] = v.styles.Selected.Render(line)
		case strings.HasPrefix(line, "[chunk "):
			out[i] = v.styles.Subtitle.Render(line)
		default:
			out[i] = v.styles.Normal.Render(line)
		}
	}
	v.pane.SetContent(strings.Join(out, "\n"))
}

// View renders the document content view.
func (v *View) View() string {
	var b strings.Builder

	if v.document == nil {
		b.WriteString(v.styles.Title.Render("Document"))
	} else {
		b.WriteString(v.styles.Title.Render(v.document.Filename))
		meta := fmt.Sprintf("  %d chunks  %d characters", len(v.chunks), v.chars)
		if v.document.MimeType != "" {
			meta = "  " + v.document.MimeType + meta
		}
		b.WriteString(v.styles.Muted.Render(meta))
	}
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(min(v.width-4, 60), 0)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading content..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(No content)"))
	default:
		b.WriteString(v.pane.View())
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  chunk %d of %d  [%3.f%%]",
			v.cursor+1, len(v.starts), v.pane.ScrollPercent()*100)))
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [n/p] next/previous chunk  [g/G] top/bottom  [esc] back"))
	return b.String()
}

// SetDimensions sets the view dimensions and re-wraps the content.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	// Title, rule, position and help.
	v.pane.Width = width
	v.pane.Height = max(height-6, 1)
	offset := v.pane.YOffset
	v.layout()
	v.pane.SetYOffset(offset)
	v.follow()
}

// Document returns the current document.
func (v *View) Document() *domain.Document {
	return v.document
}

// Chunks returns the loaded chunks.
func (v *View) Chunks() []domain.Chunk {
	return v.chunks
}

// Lines returns the wrapped, unstyled content lines.
func (v *View) Lines() []string {
	return v.lines
}

// ScrollOffset returns the first visible line.
func (v *View) ScrollOffset() int {
	return v.pane.YOffset
}

// Cursor returns the position of the highlighted chunk in Chunks.
func (v *View) Cursor() int {
	return v.cursor
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
