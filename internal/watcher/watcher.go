// Package watcher reloads the vector store when its snapshot file changes.
//
// The parent directory is watched rather than the file itself: snapshots are
// written to a temp file and renamed into place, which replaces the inode a
// file watch would be bound to.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// DefaultDebounce is used when no debounce is configured.
const DefaultDebounce = 500 * time.Millisecond

// Loader replaces its contents with the snapshot at path.
type Loader interface {
	Load(ctx context.Context, path string) error
}

// SnapshotWriter is implemented by loaders that also save the snapshot.
// Files they report as their own are not reloaded, so a save never rolls
// the loader back over writes made after it.
type SnapshotWriter interface {
	WroteSnapshot(path string) bool
}

// SnapshotWatcher calls Loader.Load after the snapshot file settles.
type SnapshotWatcher struct {
	path     string
	loader   Loader
	debounce time.Duration
	logger   *zap.Logger
	onReload func(error)

	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool
}

// Option configures a SnapshotWatcher.
type Option func(*SnapshotWatcher)

// WithDebounce sets how long the file must stay quiet before a reload.
func WithDebounce(d time.Duration) Option {
	return func(w *SnapshotWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *SnapshotWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithOnReload registers a callback invoked after every reload attempt with
// its result.
func WithOnReload(fn func(error)) Option {
	return func(w *SnapshotWatcher) {
		w.onReload = fn
	}
}

// New creates a watcher for the snapshot at path. The parent directory must
// exist; the file itself may not exist yet.
func New(path string, loader Loader, opts ...Option) (*SnapshotWatcher, error) {
	if path == "" {
		return nil, errors.New("snapshot path is required")
	}
	if loader == nil {
		return nil, errors.New("loader is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving snapshot path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	w := &SnapshotWatcher{
		path:     abs,
		loader:   loader,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		watcher:  fw,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Path returns the absolute snapshot path being watched.
func (w *SnapshotWatcher) Path() string {
	return w.path
}

// Start begins watching in a background goroutine. Call Stop to release the
// watcher.
func (w *SnapshotWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	w.logger.Info("watching snapshot",
		zap.String("path", w.path),
		zap.Duration("debounce", w.debounce),
	)

	w.started.Store(true)
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and, if Start succeeded, waits for the event loop
// to exit. Safe to call more than once.
func (w *SnapshotWatcher) Stop() {
	w.close()
	if w.started.Load() {
		<-w.done
	}
}

func (w *SnapshotWatcher) close() {
	w.once.Do(func() {
		close(w.stop)
		_ = w.watcher.Close()
	})
}

// Done is closed when the event loop has exited.
func (w *SnapshotWatcher) Done() <-chan struct{} {
	return w.done
}

func (w *SnapshotWatcher) run(ctx context.Context) {
	defer close(w.done)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			w.close()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("snapshot changed", zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("snapshot watcher error", zap.Error(err))
		case <-timer.C:
			w.reload(ctx)
		}
	}
}

// relevant reports whether event may have produced a new snapshot. Removals
// are ignored; the store keeps its contents until a new file appears.
func (w *SnapshotWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write)
}

func (w *SnapshotWatcher) reload(ctx context.Context) {
	if sw, ok := w.loader.(SnapshotWriter); ok && sw.WroteSnapshot(w.path) {
		w.logger.Debug("skipping reload of own snapshot", zap.String("path", w.path))
		return
	}
	err := w.loader.Load(ctx, w.path)
	if err != nil {
		w.logger.Warn("snapshot reload failed", zap.String("path", w.path), zap.Error(err))
	} else {
		w.logger.Info("snapshot reloaded", zap.String("path", w.path))
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}
