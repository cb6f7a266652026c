// Package keymap defines keybindings for the TUI.
package keymap

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds every binding the help view lists. Views match key strings
// against these with Matches.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding
	Back key.Binding

	// Chat.
	Send      key.Binding
	Stop      key.Binding
	NewChat   key.Binding
	NextModel key.Binding

	// Lists.
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Delete key.Binding
	Filter key.Binding
	Sort   key.Binding

	// Document chunks.
	NextChunk key.Binding
	PrevChunk key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: bind("ctrl+c", "quit", "ctrl+c"),
		Help: bind("?", "help", "?"),
		Back: bind("esc", "back", "esc"),

		Send:      bind("enter", "ask", "enter"),
		Stop:      bind("ctrl+x", "stop answer", "ctrl+x"),
		NewChat:   bind("ctrl+n", "new chat", "ctrl+n"),
		NextModel: bind("tab", "next model", "tab"),

		Up:     bind("↑/k", "up", "up", "k"),
		Down:   bind("↓/j", "down", "down", "j"),
		Select: bind("enter", "open", "enter"),
		Delete: bind("d", "delete", "d"),
		Filter: bind("/", "filter", "/"),
		Sort:   bind("s", "sort", "s"),

		NextChunk: bind("n", "next chunk", "n"),
		PrevChunk: bind("p", "previous chunk", "p"),
	}
}

// ChatHelp is shown while a question is being typed.
func (k *KeyMap) ChatHelp() []key.Binding {
	return []key.Binding{k.Send, k.NextModel, k.NewChat, k.Back}
}

// StreamingHelp is shown while an answer streams.
func (k *KeyMap) StreamingHelp() []key.Binding {
	return []key.Binding{k.Stop, k.Quit}
}

// FullHelp lists every binding, one column per screen.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Stop, k.NewChat, k.NextModel},
		{k.Up, k.Down, k.Select, k.Delete, k.Filter, k.Sort},
		{k.NextChunk, k.PrevChunk},
		{k.Back, k.Help, k.Quit},
	}
}

// Matches reports whether keyStr is one of binding's keys.
func Matches(keyStr string, binding key.Binding) bool {
	return slices.Contains(binding.Keys(), keyStr)
}
