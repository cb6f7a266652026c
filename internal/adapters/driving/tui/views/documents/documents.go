// Package documents provides the uploaded documents list of the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// ErrNoDocumentService is returned when no document service is configured.
var ErrNoDocumentService = errors.New("document service not available")

// SortOrder orders the list.
type SortOrder int

const (
	SortNewest SortOrder = iota
	SortName
	SortChunks
)

func (o SortOrder) String() string {
	switch o {
	case SortName:
		return "name"
	case SortChunks:
		return "chunks"
	default:
		return "newest"
	}
}

type mode int

const (
	modeList mode = iota
	modeFilter
	modeConfirmDelete
)

// View lists uploaded documents. Enter opens a document's chunks, d deletes it
// after confirmation, / filters by filename and s changes the sort order.
type View struct {
	styles          *styles.Styles
	documentService driving.DocumentService
	ctx             context.Context

	all     []domain.Document
	shown   []domain.Document
	filter  string
	order   SortOrder
	mode    mode
	loading bool
	err     error

	selected     int
	scrollOffset int
	width        int
	height       int
	ready        bool
}

// NewView creates a new documents view.
func NewView(s *styles.Styles, documentService driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		documentService: documentService,
		ctx:             context.Background(),
		width:           80,
		height:          24,
	}
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

// Load resets selection and mode and lists the documents.
func (v *View) Load() tea.Cmd {
	v.selected = 0
	v.scrollOffset = 0
	v.err = nil
	v.mode = modeList
	return v.loadDocuments()
}

func (v *View) loadDocuments() tea.Cmd {
	v.loading = true
	svc, ctx := v.documentService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentsLoaded{Err: ErrNoDocumentService}
		}
		docs, err := svc.List(ctx)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

func (v *View) deleteDocument(docID string) tea.Cmd {
	svc, ctx := v.documentService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentDeleted{DocumentID: docID, Err: ErrNoDocumentService}
		}
		return messages.DocumentDeleted{DocumentID: docID, Err: svc.Delete(ctx, docID)}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch v.mode {
		case modeFilter:
			v.handleFilterKey(msg)
			return v, nil
		case modeConfirmDelete:
			return v, v.handleConfirmKey(msg)
		default:
			return v, v.handleListKey(msg)
		}

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.all = msg.Documents
		v.refresh()

	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		return v, v.loadDocuments()

	case messages.ErrorOccurred:
		v.err = msg.Err
	}
	return v, nil
}

func (v *View) handleListKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		v.move(-1)
	case "down", "j":
		v.move(1)
	case "enter":
		if doc := v.SelectedDocument(); doc != nil {
			selected := *doc
			return func() tea.Msg { return messages.DocumentSelected{Document: selected} }
		}
	case "d":
		if v.SelectedDocument() != nil {
			v.mode = modeConfirmDelete
		}
	case "/":
		v.mode = modeFilter
	case "s":
		v.order = (v.order + 1) % 3
		v.refresh()
	case "r":
		return v.loadDocuments()
	case "esc":
		if v.filter != "" {
			v.filter = ""
			v.refresh()
			return nil
		}
		return func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
	}
	return nil
}

func (v *View) handleFilterKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEnter:
		v.mode = modeList
		return
	case tea.KeyEsc:
		v.filter = ""
		v.mode = modeList
	case tea.KeyBackspace:
		if r := []rune(v.filter); len(r) > 0 {
			v.filter = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		v.filter += string(msg.Runes)
	}
	v.selected, v.scrollOffset = 0, 0
	v.refresh()
}

func (v *View) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	v.mode = modeList
	doc := v.SelectedDocument()
	if doc == nil {
		return nil
	}
	switch msg.String() {
	case "y", "Y":
		return v.deleteDocument(doc.ID)
	}
	return nil
}

func (v *View) move(delta int) {
	next := v.selected + delta
	if next < 0 || next >= len(v.shown) {
		return
	}
	v.selected = next
	v.adjustScroll()
}

// refresh rebuilds the visible list from the loaded documents, the filter and the order.
func (v *View) refresh() {
	needle := strings.ToLower(v.filter)
	shown := make([]domain.Document, 0, len(v.all))
	for _, d := range v.all {
		if needle == "" || strings.Contains(strings.ToLower(d.Filename), needle) {
			shown = append(shown, d)
		}
	}

	switch v.order {
	case SortName:
		slices.SortStableFunc(shown, func(a, b domain.Document) int {
			return strings.Compare(strings.ToLower(a.Filename), strings.ToLower(b.Filename))
		})
	case SortChunks:
		slices.SortStableFunc(shown, func(a, b domain.Document) int { return b.ChunkCount - a.ChunkCount })
	case SortNewest:
		// The service already lists newest first.
	}

	v.shown = shown
	if v.selected >= len(v.shown) {
		v.selected = max(len(v.shown)-1, 0)
	}
	v.adjustScroll()
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	// Title, status line, scroll indicator and help.
	return max(v.height-8, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	chunks := 0
	for _, d := range v.all {
		chunks += d.ChunkCount
	}
	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.all))))
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  %d chunks indexed  sorted by %s", chunks, v.order)))
	b.WriteString("\n")
	if v.filter != "" || v.mode == modeFilter {
		b.WriteString(v.styles.Subtitle.Render("Filter: " + v.filter))
		if v.mode == modeFilter {
			b.WriteString("_")
		}
	}
	b.WriteString("\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.all) == 0:
		b.WriteString(v.styles.Muted.Render("No documents uploaded. Use `sercha-rag ingest <file>` to add some."))
	case len(v.shown) == 0:
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("No filenames match %q.", v.filter)))
	default:
		v.renderList(&b)
	}

	b.WriteString("\n\n")
	if v.mode == modeConfirmDelete {
		if doc := v.SelectedDocument(); doc != nil {
			b.WriteString(v.styles.Warning.Render(fmt.Sprintf(
				"Delete %s and its %d indexed chunks? [y] yes  [any key] no", doc.Filename, doc.ChunkCount)))
			return b.String()
		}
	}
	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *View) renderList(b *strings.Builder) {
	visible := v.visibleItemCount()
	end := min(v.scrollOffset+visible, len(v.shown))
	for i := v.scrollOffset; i < end; i++ {
		b.WriteString(v.renderDocument(i, &v.shown[i]))
		b.WriteString("\n")
	}
	if len(v.shown) > visible {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]", v.scrollOffset+1, end, len(v.shown))))
	}
}

func (v *View) renderDocument(index int, doc *domain.Document) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	name := doc.Filename
	if name == "" {
		name = doc.ID
	}
	width := max(v.width/2-4, 10)
	if r := []rune(name); len(r) > width {
		name = string(r[:width-3]) + "..."
	}

	meta := fmt.Sprintf("%d chunks  %s  %s",
		doc.ChunkCount, formatSize(doc.SizeBytes), doc.UploadedAt.Local().Format(time.DateTime))

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, width, name, meta))
	}
	return v.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, width, name)) + v.styles.Muted.Render(meta)
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func (v *View) renderHelp() string {
	if v.mode == modeFilter {
		return v.styles.Help.Render("type to filter  [enter] keep  [esc] clear")
	}
	return v.styles.Help.Render("[↑/↓] navigate  [enter] chunks  [d] delete  [/] filter  [s] sort  [r] reload  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.adjustScroll()
}

// Documents returns the documents currently shown, after filter and sort.
func (v *View) Documents() []domain.Document {
	return v.shown
}

// SelectedIndex returns the index of the selected document in Documents.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the selected document, or nil when none is shown.
func (v *View) SelectedDocument() *domain.Document {
	if v.selected < len(v.shown) {
		return &v.shown[v.selected]
	}
	return nil
}

// Confirming reports whether a delete is awaiting confirmation.
func (v *View) Confirming() bool {
	return v.mode == modeConfirmDelete
}

// Filtering reports whether filter input is active.
func (v *View) Filtering() bool {
	return v.mode == modeFilter
}

// Filter returns the filename filter.
func (v *View) Filter() string {
	return v.filter
}

// Order returns the sort order.
func (v *View) Order() SortOrder {
	return v.order
}

// Loading reports whether documents are being loaded.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
