// Package watch notices when another device rewrites the cloud snapshot in a
// synced folder.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long events are collected before the file is
// re-read.
const DefaultDebounce = 500 * time.Millisecond

// Change reports that the watched file has new content.
type Change struct {
	Path    string
	Removed bool
}

// Watcher watches one file. It watches the parent directory, because atomic
// writers replace the file by renaming over it.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   bool

	hashMu sync.Mutex
	hash   string

	changes chan Change
	dropped atomic.Int64
}

// New returns a watcher for path. A debounce of zero uses DefaultDebounce.
func New(path string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		changes:  make(chan Change, 1),
	}, nil
}

// Changes returns the channel of content changes. It is closed when the
// watcher stops.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Start begins watching. The current content is recorded so that only later
// changes are reported.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	if h, err := fileHash(w.path); err == nil {
		w.setHash(h)
	}

	go w.processEvents(ctx)

	w.logger.Info("watching cloud snapshot", "path", w.path, "debounce", w.debounce)
	return nil
}

// Stop stops the watcher. The changes channel is closed by the event loop.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// Observe records content the caller wrote itself, so that it is not
// reported back as a change.
func (w *Watcher) Observe(data []byte) {
	w.setHash(hashBytes(data))
}

// Dropped returns the number of changes dropped because nobody was reading.
func (w *Watcher) Dropped() int64 {
	return w.dropped.Load()
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.changes)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			w.pendingMu.Lock()
			w.pending = true
			w.pendingMu.Unlock()
			w.logger.Debug("cloud snapshot event", "op", event.Op.String())

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if !w.pending {
		w.pendingMu.Unlock()
		return
	}
	w.pending = false
	w.pendingMu.Unlock()

	h, err := fileHash(w.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if w.swapHash("") != "" {
			w.send(Change{Path: w.path, Removed: true})
		}
		return
	case err != nil:
		w.logger.Warn("read watched file", "path", w.path, "error", err)
		return
	}
	if w.swapHash(h) == h {
		return
	}
	w.send(Change{Path: w.path})
}

// send coalesces: if a change is already waiting, the new one is dropped.
func (w *Watcher) send(c Change) {
	select {
	case w.changes <- c:
	default:
		dropped := w.dropped.Add(1)
		w.logger.Debug("change already queued", "total_dropped", dropped)
	}
}

func (w *Watcher) setHash(h string) {
	w.hashMu.Lock()
	w.hash = h
	w.hashMu.Unlock()
}

func (w *Watcher) swapHash(h string) (old string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	old, w.hash = w.hash, h
	return old
}

func fileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return hashBytes(data), nil
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Run starts w and calls onChange for every change until ctx is done.
func Run(ctx context.Context, w *Watcher, onChange func(context.Context, Change)) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = w.Stop()
	}()
	for c := range w.Changes() {
		onChange(ctx, c)
	}
	return ctx.Err()
}
