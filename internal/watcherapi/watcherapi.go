// Package watcherapi defines the file-watcher boundary: the FileEvent type
// that an incremental-refresh trigger consumes, and a thin fsnotify-backed
// Watcher for local dev/testing. The engine itself never watches
// filesystems directly; the watcher is an external driver of
// engine.Engine.RefreshIndex, not a core component, so this package stays
// a small adapter.
package watcherapi

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codectx/ctxd/internal/gitignore"
	"github.com/codectx/ctxd/internal/model"
)

// Operation is the kind of filesystem change a FileEvent reports.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is the boundary type a refresh trigger consumes: enough to
// decide whether an incremental RefreshIndex call is warranted.
type FileEvent struct {
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Options configures the watcher.
type Options struct {
	DebounceWindow  time.Duration
	EventBufferSize int
	IgnorePatterns  []string
}

// WithDefaults fills zero-valued fields with sensible defaults.
func (o Options) WithDefaults() Options {
	if o.DebounceWindow == 0 {
		o.DebounceWindow = 200 * time.Millisecond
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = 1000
	}
	return o
}

// Refresher is the one thing a watcher session needs from the engine: a way
// to trigger an incremental rebuild. Satisfied by engine.Engine.RefreshIndex.
type Refresher interface {
	RefreshIndex(ctx context.Context, incrementalOnly bool) (model.Stats, error)
}

// Drive runs w for root and, for every debounced batch of events, calls
// refresher.RefreshIndex(ctx, true). It returns when the watcher stops or
// ctx is cancelled.
func Drive(ctx context.Context, w *Watcher, root string, refresher Refresher, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-w.Events():
				if !ok {
					return
				}
				logger.Info("file changes detected, refreshing index",
					slog.Int("batch_size", len(batch)), slog.String("root", root))
				if _, err := refresher.RefreshIndex(ctx, true); err != nil {
					logger.Error("incremental refresh failed", slog.String("error", err.Error()))
				}
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				logger.Warn("watcher error", slog.String("error", err.Error()))
			}
		}
	}()

	err := w.Start(ctx, root)
	<-done
	return err
}

// Watcher streams debounced file events for a directory tree until Stop is
// called or its context is cancelled.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *debouncer
	gitignore *gitignore.Matcher
	events    chan []FileEvent
	errors    chan error
	stopCh    chan struct{}
	rootPath  string
	opts      Options

	mu      sync.RWMutex
	stopped bool
}

// New builds a Watcher. The underlying fsnotify.Watcher isn't created until
// Start, since it must be recreated per Start/Stop cycle.
func New(opts Options) *Watcher {
	opts = opts.WithDefaults()
	w := &Watcher{
		debouncer: newDebouncer(opts.DebounceWindow),
		gitignore: gitignore.New(),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}
	for _, p := range opts.IgnorePatterns {
		w.gitignore.AddPattern(p)
	}
	w.gitignore.AddPattern(".codebase-context/")
	w.gitignore.AddPattern(".codebase-context/**")
	return w
}

// Start begins watching root recursively. It blocks until ctx is cancelled
// or Stop is called.
func (w *Watcher) Start(ctx context.Context, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.rootPath = absRoot

	w.loadGitignore()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w.fsWatcher = fsw
	defer fsw.Close()

	if err := w.addRecursive(absRoot); err != nil {
		return fmt.Errorf("watch directory tree: %w", err)
	}

	go w.forwardDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// Stop stops the watcher and releases resources. Safe to call more than
// once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.stop()
	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of debounced event batches.
func (w *Watcher) Events() <-chan []FileEvent { return w.events }

// Errors returns the channel of non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error { return w.errors }

func (w *Watcher) handleEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(w.rootPath, event.Name)
	if err != nil {
		relPath = event.Name
	}
	isDir := false
	if info, statErr := os.Stat(event.Name); statErr == nil {
		isDir = info.IsDir()
	}
	if w.shouldIgnore(relPath, isDir) {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			_ = w.fsWatcher.Add(event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}

	if filepath.Base(event.Name) == ".gitignore" {
		w.loadGitignore()
	}

	w.debouncer.add(FileEvent{Path: relPath, Operation: op, IsDir: isDir, Timestamp: time.Now()})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		relPath, _ := filepath.Rel(root, path)
		if relPath == "." {
			return w.fsWatcher.Add(path)
		}
		if w.shouldIgnore(relPath, true) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) shouldIgnore(relPath string, isDir bool) bool {
	if relPath == "." || relPath == "" {
		return true
	}
	if strings.HasPrefix(relPath, ".git/") || relPath == ".git" {
		return true
	}
	if strings.HasPrefix(relPath, ".codebase-context") {
		return true
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.gitignore.Match(relPath, isDir)
}

func (w *Watcher) loadGitignore() {
	w.mu.Lock()
	defer w.mu.Unlock()
	m := gitignore.New()
	for _, p := range w.opts.IgnorePatterns {
		m.AddPattern(p)
	}
	m.AddPattern(".codebase-context/")
	m.AddPattern(".codebase-context/**")
	path := filepath.Join(w.rootPath, ".gitignore")
	if err := m.AddFromFile(path, ""); err != nil {
		slog.Debug("no root .gitignore", slog.String("path", path))
	}
	w.gitignore = m
}

func (w *Watcher) forwardDebounced(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case batch, ok := <-w.debouncer.output():
			if !ok {
				return
			}
			if len(batch) == 0 {
				continue
			}
			w.emitEvents(batch)
		}
	}
}

func (w *Watcher) emitEvents(batch []FileEvent) {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()
	if stopped {
		return
	}
	select {
	case w.events <- batch:
	default:
		slog.Warn("watcher event buffer full, dropping batch", slog.Int("batch_size", len(batch)))
	}
}

func (w *Watcher) emitError(err error) {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()
	if stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}
