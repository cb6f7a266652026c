package postprocessors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// registryMockChunker is a simple mock for testing registry functionality.
type registryMockChunker struct {
	name string
}

func (m *registryMockChunker) Name() string { return m.name }
func (m *registryMockChunker) Chunk(text string) ([]string, error) {
	return []string{text}, nil
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)
	assert.Empty(t, r.Names())
}

func TestRegistry_Build_Success(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(cfg map[string]any) (driven.Chunker, error) {
		name := "default"
		if n, ok := cfg["name"].(string); ok {
			name = n
		}
		return &registryMockChunker{name: name}, nil
	})

	c, err := r.Build("test", map[string]any{"name": "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", c.Name())
}

func TestRegistry_Build_Unknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Build("unknown", nil)
	assert.ErrorContains(t, err, "unknown chunker: unknown")
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Names())

	for _, name := range []string{"beta", "alpha"} {
		r.Register(name, func(_ map[string]any) (driven.Chunker, error) {
			return &registryMockChunker{name: name}, nil
		})
	}

	assert.Equal(t, []string{"alpha", "beta"}, r.Names())

	_, err := r.Build("gamma", nil)
	assert.ErrorContains(t, err, "unknown chunker: gamma (available: alpha, beta)")
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	assert.Equal(t, []string{DefaultChunker}, r.Names())
}

func TestBuildChunker_WithConfig(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	c, err := r.Build(DefaultChunker, map[string]any{"chunk_size": int64(10), "overlap": int64(3)})
	require.NoError(t, err)

	chunks, err := c.Chunk("Cats are mammals.")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cats are m", "e mammals."}, chunks)
}

func TestBuildChunker_ZeroOverlap(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	c, err := r.Build(DefaultChunker, map[string]any{"chunk_size": 4, "overlap": 0})
	require.NoError(t, err)

	chunks, err := c.Chunk("abcdefgh")
	require.NoError(t, err)
	assert.Equal(t, []string{"abcd", "efgh"}, chunks)
}

func TestBuildChunker_InvalidOverlap(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	_, err := r.Build(DefaultChunker, map[string]any{"chunk_size": 100, "overlap": 100})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuildChunker_WithNilConfig(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	c, err := r.Build(DefaultChunker, nil)
	require.NoError(t, err)
	assert.Equal(t, "chunker", c.Name())
}

func TestNewChunker_FromSettings(t *testing.T) {
	c, err := NewChunker(domain.DefaultAppSettings().RAG)
	require.NoError(t, err)
	assert.Equal(t, "chunker", c.Name())
}

func TestGetIntFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      map[string]any
		key      string
		expected int
	}{
		{"int value", map[string]any{"size": 100}, "size", 100},
		{"int64 value", map[string]any{"size": int64(200)}, "size", 200},
		{"float64 value", map[string]any{"size": float64(300)}, "size", 300},
		{"string value", map[string]any{"size": "400"}, "size", 0},
		{"missing key", map[string]any{"other": 100}, "size", 0},
		{"nil config", nil, "size", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, getIntFromConfig(tt.cfg, tt.key))
		})
	}
}
