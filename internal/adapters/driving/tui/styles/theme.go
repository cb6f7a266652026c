// Package styles provides the colour palette and lipgloss styles for the chat TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette holds the colours the chat screens are drawn with.
type Palette struct {
	Accent   lipgloss.Color
	Question lipgloss.Color
	Answer   lipgloss.Color
	Faint    lipgloss.Color
	Cite     lipgloss.Color
	Caution  lipgloss.Color
	Failure  lipgloss.Color
	Frame    lipgloss.Color
	Bar      lipgloss.Color
}

// DefaultPalette returns the dark palette used unless another is supplied.
func DefaultPalette() *Palette {
	return &Palette{
		Accent:   lipgloss.Color("#14B8A6"),
		Question: lipgloss.Color("#89B4FA"),
		Answer:   lipgloss.Color("#CDD6F4"),
		Faint:    lipgloss.Color("#6C7086"),
		Cite:     lipgloss.Color("#A6E3A1"),
		Caution:  lipgloss.Color("#F9E2AF"),
		Failure:  lipgloss.Color("#F38BA8"),
		Frame:    lipgloss.Color("#45475A"),
		Bar:      lipgloss.Color("#181825"),
	}
}

// Styles are the rendered styles shared by every view.
type Styles struct {
	palette *Palette

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Warning  lipgloss.Style
	Help     lipgloss.Style

	// InputField frames the question box.
	InputField lipgloss.Style
	StatusBar  lipgloss.Style

	// UserMessage and AssistantMessage render transcript turns.
	UserMessage      lipgloss.Style
	AssistantMessage lipgloss.Style

	// Ungrounded marks answers produced without any excerpt.
	Ungrounded lipgloss.Style

	// Citation renders a source filename; Score renders its relevance.
	Citation lipgloss.Style
	Score    lipgloss.Style
}

// NewStyles builds styles from a palette. A nil palette uses DefaultPalette.
func NewStyles(p *Palette) *Styles {
	if p == nil {
		p = DefaultPalette()
	}

	plain := lipgloss.NewStyle()
	return &Styles{
		palette: p,

		Title:    plain.Bold(true).Foreground(p.Accent),
		Subtitle: plain.Bold(true).Foreground(p.Question),
		Normal:   plain.Foreground(p.Answer),
		Muted:    plain.Foreground(p.Faint),
		Selected: plain.Bold(true).Foreground(p.Answer).Background(p.Accent),
		Error:    plain.Foreground(p.Failure),
		Warning:  plain.Foreground(p.Caution),
		Help:     plain.Foreground(p.Faint),

		InputField: plain.
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Frame).
			Padding(0, 1),
		StatusBar: plain.Foreground(p.Faint).Background(p.Bar).Padding(0, 1),

		UserMessage:      plain.Bold(true).Foreground(p.Question),
		AssistantMessage: plain.Foreground(p.Answer).PaddingLeft(2),
		Ungrounded:       plain.Italic(true).Foreground(p.Caution).PaddingLeft(2),

		Citation: plain.Italic(true).Foreground(p.Cite),
		Score:    plain.Foreground(p.Faint),
	}
}

// DefaultStyles returns styles built from DefaultPalette.
func DefaultStyles() *Styles {
	return NewStyles(DefaultPalette())
}

// Palette returns the colours the styles were built from.
func (s *Styles) Palette() *Palette {
	return s.palette
}
