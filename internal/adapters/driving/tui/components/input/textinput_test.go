package input

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
)

func TestNewPromptInput(t *testing.T) {
	input := NewPromptInput(styles.DefaultStyles())

	require.NotNil(t, input)
	assert.Equal(t, "", input.Value())
	assert.True(t, input.Focused())
}

func TestNewPromptInput_NilStyles(t *testing.T) {
	input := NewPromptInput(nil)

	require.NotNil(t, input)
	assert.NotNil(t, input.styles)
}

func TestPromptInput_Init(t *testing.T) {
	assert.NotNil(t, NewPromptInput(nil).Init())
}

func TestPromptInput_Update(t *testing.T) {
	input := NewPromptInput(nil)

	updated, _ := input.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})

	assert.Equal(t, input, updated)
	assert.Equal(t, "a", input.Value())
}

func TestPromptInput_View(t *testing.T) {
	view := NewPromptInput(nil).View()

	assert.Contains(t, view, "Ask")
}

func TestPromptInput_FocusAndBlur(t *testing.T) {
	input := NewPromptInput(nil)

	input.Blur()
	assert.False(t, input.Focused())

	input.Focus()
	assert.True(t, input.Focused())
}

func TestPromptInput_SetWidth(t *testing.T) {
	tests := []struct {
		name       string
		width      int
		inputWidth int
	}{
		{"wide terminal", 100, 90},
		{"narrow terminal keeps a minimum", 15, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := NewPromptInput(nil)
			input.SetWidth(tt.width)

			assert.Equal(t, tt.width, input.Width())
			assert.Equal(t, tt.inputWidth, input.textinput.Width)
		})
	}
}

func TestPromptInput_CharLimit(t *testing.T) {
	input := NewPromptInput(nil)
	input.SetValue(strings.Repeat("x", questionCharLimit+10))

	assert.Len(t, input.Value(), questionCharLimit)
}

func TestPromptInput_Reset(t *testing.T) {
	input := NewPromptInput(nil)
	input.SetValue("what is the refund policy?")

	input.Reset()

	assert.Empty(t, input.Value())
}
