// Package watch ingests text files as they appear in a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// DefaultSettle is how long a new file must stay unchanged before it is ingested.
const DefaultSettle = 500 * time.Millisecond

// DefaultExtensions are the file extensions picked up by the watcher.
var DefaultExtensions = []string{".txt", ".md"}

// ErrMissingDocumentService is returned when no document service is provided.
var ErrMissingDocumentService = errors.New("watch: document service is required")

// Result reports one ingestion attempt.
type Result struct {
	Path   string
	Result *driving.IngestResult
	Err    error
}

// Options configures a Watcher.
type Options struct {
	// Extensions limits ingestion to these extensions. Defaults to DefaultExtensions.
	Extensions []string

	// Settle is the quiet period after the last write. Defaults to DefaultSettle.
	Settle time.Duration

	// Existing ingests files already present when Run starts.
	Existing bool

	// OnResult is called after every ingestion attempt. Optional.
	OnResult func(Result)
}

// Watcher ingests matching files created in a directory.
type Watcher struct {
	documents driving.DocumentService
	dir       string
	opts      Options

	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates a watcher for dir.
func New(documents driving.DocumentService, dir string, opts Options) (*Watcher, error) {
	if documents == nil {
		return nil, ErrMissingDocumentService
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch directory: %s is not a directory", dir)
	}

	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	exts := make([]string, 0, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	opts.Extensions = exts
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}

	return &Watcher{
		documents: documents,
		dir:       dir,
		opts:      opts,
		pending:   make(map[string]time.Time),
	}, nil
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	logger.Info("watching %s for %s files", w.dir, strings.Join(w.opts.Extensions, ", "))

	if w.opts.Existing {
		w.ingestExisting(ctx)
	}

	ticker := time.NewTicker(w.opts.Settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event, time.Now())

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)

		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				w.ingest(ctx, path)
			}
		}
	}
}

// handleEvent tracks new files until they settle. Writes only extend files
// already pending; edits to older files are ignored.
func (w *Watcher) handleEvent(event fsnotify.Event, now time.Time) {
	if !w.matches(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.Mode().IsRegular() {
			w.pending[event.Name] = now
		}
	case event.Has(fsnotify.Write):
		if _, ok := w.pending[event.Name]; ok {
			w.pending[event.Name] = now
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.pending, event.Name)
	}
}

// settled removes and returns the pending paths unchanged for the settle period.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.opts.Settle {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	slices.Sort(ready)
	return ready
}

// Pending returns the paths waiting to settle.
func (w *Watcher) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return slices.Contains(w.opts.Extensions, strings.ToLower(filepath.Ext(base)))
}

func (w *Watcher) ingestExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warn("listing %s: %v", w.dir, err)
		return
	}
	for _, e := range entries {
		path := filepath.Join(w.dir, e.Name())
		if e.Type().IsRegular() && w.matches(path) {
			w.ingest(ctx, path)
		}
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	res := Result{Path: path}

	content, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("reading %s: %w", path, err)
	} else {
		res.Result, res.Err = w.documents.Ingest(ctx, driving.IngestRequest{
			Filename: filepath.Base(path),
			Content:  content,
		})
	}

	if res.Err != nil {
		logger.Warn("ingesting %s: %v", path, res.Err)
	} else {
		logger.Info("ingested %s (%d chunks)", path, res.Result.Chunks)
	}
	if w.opts.OnResult != nil {
		w.opts.OnResult(res)
	}
}
