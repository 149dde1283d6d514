package cssloader

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchedDiscovery caches the result of another Discovery and drops the
// cache whenever the CSS directory changes. It is safe for concurrent use.
type WatchedDiscovery struct {
	inner   Discovery
	dir     string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	changes chan struct{}

	mu     sync.Mutex
	cached *Report

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewWatchedDiscovery watches dir and serves cached results from inner.
// It fails when dir cannot be watched; callers should fall back to inner.
func NewWatchedDiscovery(inner Discovery, dir string, logger *zap.Logger) (*WatchedDiscovery, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	return &WatchedDiscovery{
		inner:   inner,
		dir:     dir,
		watcher: watcher,
		logger:  logger.Named("watch"),
		changes: make(chan struct{}, 1),
	}, nil
}

// Start processes directory events until ctx is done or Close is called.
func (w *WatchedDiscovery) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

// Scanner is a Discovery that can also report skipped entries.
type Scanner interface {
	Discovery
	Scan() Report
}

// Discover returns the cached classification, scanning on a cache miss.
func (w *WatchedDiscovery) Discover() Classification {
	return w.Scan().Classification
}

// Scan returns a copy of the cached report, scanning on a cache miss.
// When the inner discovery is not a Scanner the report only carries the
// classification.
func (w *WatchedDiscovery) Scan() Report {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cached == nil {
		var rep Report
		if s, ok := w.inner.(Scanner); ok {
			rep = s.Scan()
		} else {
			rep = Report{BaseDirectory: w.dir, Classification: w.inner.Discover()}
		}
		w.cached = &rep
	}

	return Report{
		BaseDirectory:  w.cached.BaseDirectory,
		Classification: w.cached.Classification.Clone(),
		Skipped:        slices.Clone(w.cached.Skipped),
		FilesScanned:   w.cached.FilesScanned,
	}
}

// Changes signals after the cache has been invalidated. Signals coalesce.
func (w *WatchedDiscovery) Changes() <-chan struct{} {
	return w.changes
}

// Invalidate drops the cached classification.
func (w *WatchedDiscovery) Invalidate() {
	w.mu.Lock()
	w.cached = nil
	w.mu.Unlock()

	select {
	case w.changes <- struct{}{}:
	default:
	}
}

// Close stops watching and waits for the event loop to exit.
func (w *WatchedDiscovery) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *WatchedDiscovery) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Chmod included: touching a file changes its cache-busting token
			w.logger.Debug("css directory changed",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()))
			w.Invalidate()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Keep watching, but don't trust the cache
			w.logger.Warn("watcher error", zap.Error(err))
			w.Invalidate()
		}
	}
}
