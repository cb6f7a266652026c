package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".sercha-rag", "config.toml"), store.Path())
}

func TestConfigStore_TypedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.provider", "anthropic"))
	require.NoError(t, store.Set("rag.top_k", 8))
	require.NoError(t, store.Set("rag.min_score", 0.35))
	require.NoError(t, store.Set("answer.emit_meta", false))
	require.NoError(t, store.Set("models.ollama", []string{"qwen2.5:7b", "llama3.2"}))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", reloaded.GetString("llm.provider"))
	assert.Equal(t, 8, reloaded.GetInt("rag.top_k"))
	assert.InDelta(t, 0.35, reloaded.GetFloat("rag.min_score"), 1e-9)
	assert.InDelta(t, 8.0, reloaded.GetFloat("rag.top_k"), 1e-9)
	val, ok := reloaded.Get("answer.emit_meta")
	assert.True(t, ok)
	assert.Equal(t, false, val)
	assert.Equal(t, []string{"qwen2.5:7b", "llama3.2"}, reloaded.GetStringSlice("models.ollama"))
}

func TestConfigStore_WritesTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("rag.min_score", 0.5))
	require.NoError(t, store.Set("server.addr", "127.0.0.1:9000"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[rag]")
	assert.Contains(t, string(data), "[server]")
	assert.NotContains(t, string(data), `"rag.min_score"`)
}

func TestConfigStore_ReadsHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[embedding]
provider = "openai"
model = "text-embedding-3-small"

[vector_index]
backend = "ivf"
nlist = 32
recall_tolerance = 0.1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai", store.GetString("embedding.provider"))
	assert.Equal(t, "ivf", store.GetString("vector_index.backend"))
	assert.Equal(t, 32, store.GetInt("vector_index.nlist"))
	assert.InDelta(t, 0.1, store.GetFloat("vector_index.recall_tolerance"), 1e-9)
	assert.Equal(t, []string{
		"embedding.model", "embedding.provider",
		"vector_index.backend", "vector_index.nlist", "vector_index.recall_tolerance",
	}, store.Keys())
}

func TestConfigStore_MissingAndMistyped(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("rag.top_k", "five"))

	assert.Equal(t, "", store.GetString("missing"))
	assert.Equal(t, 0, store.GetInt("rag.top_k"))
	assert.Equal(t, 0.0, store.GetFloat("rag.top_k"))
	assert.False(t, store.GetBool("rag.top_k"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.api_key", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_CorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [valid"), 0600))

	_, err := NewConfigStore(dir)
	assert.Error(t, err)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Set("rag.top_k", i))
			_ = store.GetInt("rag.top_k")
		}()
	}
	wg.Wait()
	assert.Len(t, store.Keys(), 1)
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"rag.top_k":     5,
		"rag.min_score": 0.4,
		"plain":         true,
	})
	assert.Equal(t, map[string]any{
		"rag":   map[string]any{"top_k": 5, "min_score": 0.4},
		"plain": true,
	}, nested)

	// A value that shadows a table keeps its dotted key.
	conflict := nestMap(map[string]any{"a": 1, "a.b": 2})
	assert.Equal(t, map[string]any{"a": 1, "a.b": 2}, conflict)
}

func TestFlattenMap(t *testing.T) {
	flat := flattenMap(map[string]any{
		"llm": map[string]any{"provider": "ollama"},
		"top": 1,
	}, "")
	assert.Equal(t, map[string]any{"llm.provider": "ollama", "top": 1}, flat)
}

func TestConfigStore_SaveWritesHeaderAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.provider", "ollama"))
	require.NoError(t, store.Set("llm.model", "qwen2.5:7b"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# sercha-rag configuration."))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.toml", entries[0].Name())
}

func TestConfigStore_QuotedValuesInHandEditedFile(t *testing.T) {
	dir := t.TempDir()
	content := "[rag]\ntop_k = \"8\"\nmin_score = \"0.3\"\n\n[answer]\nemit_meta = \"false\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 8, store.GetInt("rag.top_k"))
	assert.InDelta(t, 0.3, store.GetFloat("rag.min_score"), 1e-9)
	assert.False(t, store.GetBool("answer.emit_meta"))
}

func TestConfigStore_LoadReplacesValues(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("rag.top_k", 3))

	require.NoError(t, os.WriteFile(store.Path(), []byte("[rag]\ntop_k = 9\n"), 0600))
	require.NoError(t, store.Load())

	assert.Equal(t, 9, store.GetInt("rag.top_k"))
	assert.Equal(t, []string{"rag.top_k"}, store.Keys())
}
