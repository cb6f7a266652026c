package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasCommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"ask", "chat", "conversation", "document", "ingest", "mcp", "models", "serve", "settings", "version", "watch"} {
		assert.Contains(t, names, want)
	}
}

func TestSetup_Bootstrap(t *testing.T) {
	SetServices(nil)
	dir := t.TempDir()

	var got Options
	closed := false
	SetBootstrap(func(_ context.Context, opts Options) (*Services, error) {
		got = opts
		return &Services{
			Models: &mockModelRegistry{},
			Close:  func() error { closed = true; return nil },
		}, nil
	})
	defer func() {
		SetBootstrap(nil)
		SetServices(nil)
		globalOpts = Options{}
	}()

	out, err := runCommand("--config-dir", dir, "models")

	require.NoError(t, err)
	assert.Contains(t, out, "Default: ollama:qwen2.5:7b")
	assert.Equal(t, dir, got.ConfigDir)
	assert.Equal(t, filepath.Join(dir, "data"), got.DataDir)
	assert.True(t, got.SettingsOnly)
	assert.True(t, closed, "services are closed after the command")
}

func TestSetup_BootstrapError(t *testing.T) {
	SetServices(nil)
	SetBootstrap(func(context.Context, Options) (*Services, error) {
		return nil, errors.New("no database")
	})
	defer func() {
		SetBootstrap(nil)
		globalOpts = Options{}
	}()

	_, err := runCommand("--config-dir", t.TempDir(), "models")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting services: no database")
}

func TestClose_Idempotent(t *testing.T) {
	calls := 0
	SetServices(&Services{Close: func() error { calls++; return nil }})
	defer SetServices(nil)

	require.NoError(t, Close())
	require.NoError(t, Close())
	assert.Equal(t, 1, calls)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SERCHA_RAG_TEST_KEY=from-file\nSERCHA_RAG_TEST_SET=from-file\n"), 0o600))
	t.Setenv("SERCHA_RAG_TEST_SET", "from-env")
	t.Setenv("SERCHA_RAG_TEST_KEY", "")
	require.NoError(t, os.Unsetenv("SERCHA_RAG_TEST_KEY"))

	loadEnvFiles(filepath.Join(dir, "missing.env"), path)

	assert.Equal(t, "from-file", os.Getenv("SERCHA_RAG_TEST_KEY"))
	assert.Equal(t, "from-env", os.Getenv("SERCHA_RAG_TEST_SET"))
}

func TestDefaultConfigDir(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	dir, err := DefaultConfigDir()

	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".sercha-rag"), dir)
}

func TestHasAnnotation(t *testing.T) {
	assert.True(t, hasAnnotation(settingsSetCmd, annotationSettingsOnly), "inherited from settings")
	assert.True(t, hasAnnotation(versionCmd, annotationNoServices))
	assert.False(t, hasAnnotation(askCmd, annotationSettingsOnly))
}
