package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

const promptExt = ".txt"

// PromptStore serves the answer system prompts from <dir>/<name>.txt.
//
// Files are seeded from driven.DefaultPrompts on first use. A cached prompt is
// re-read when its file's modification time changes, so edits reach a running
// server without a restart. Missing, unreadable or blank files fall back to the
// built-in text.
type PromptStore struct {
	dir string

	mu    sync.RWMutex
	cache map[string]cachedPrompt

	seedOnce sync.Once
	seedErr  error
}

type cachedPrompt struct {
	text    string
	modTime time.Time
}

// NewPromptStore creates a prompt store rooted at dir, ~/.sercha-rag/prompts when empty.
// No I/O happens until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".sercha-rag", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]cachedPrompt)}, nil
}

// Load returns the named prompt.
func (s *PromptStore) Load(name string) (string, error) {
	s.seedOnce.Do(s.seed)

	builtin, known := driven.DefaultPrompts()[name]
	if s.seedErr != nil {
		if known {
			return builtin, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.seedErr)
	}

	path := s.path(name)
	info, err := os.Stat(path)
	if err != nil {
		if known {
			return builtin, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.RLock()
	hit, ok := s.cache[name]
	s.mu.RUnlock()
	if ok && hit.modTime.Equal(info.ModTime()) {
		return hit.text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if known {
			return builtin, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		if known {
			logger.Warn("prompt %s is empty, using built-in text", path)
			return builtin, nil
		}
		return "", fmt.Errorf("load prompt %q: file is empty", name)
	}

	s.mu.Lock()
	s.cache[name] = cachedPrompt{text: text, modTime: info.ModTime()}
	s.mu.Unlock()
	if ok {
		logger.Debug("prompt %s changed on disk, reloaded", name)
	}
	return text, nil
}

// Reload drops every cached prompt.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]cachedPrompt)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+promptExt)
}

// seed creates the directory and writes any missing default prompt and the README.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	files := map[string]string{"README.md": promptReadme}
	for name, text := range driven.DefaultPrompts() {
		files[name+promptExt] = text
	}
	for file, content := range files {
		path := filepath.Join(s.dir, file)
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			s.seedErr = fmt.Errorf("create %s: %w", file, err)
			return
		}
	}
}

const promptReadme = `# Answer prompts

grounded_system.txt is sent when excerpts were retrieved. The numbered
excerpts follow it as "[n] (source: <filename>)".

ungrounded_system.txt is sent when nothing relevant was found. It must make
the model say so instead of answering from general knowledge.

Edits apply to the next question. Delete a file or empty it to restore the
built-in text. Neither prompt takes placeholders.
`
