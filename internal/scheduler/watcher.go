package scheduler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 50 * time.Millisecond

// Watcher signals when a file may have changed. It listens for fsnotify
// events on the file's directory (the file itself is replaced by rename on
// every save) and also ticks at a fixed interval, so a lost or unsupported
// event only delays a reload by one interval.
type Watcher struct {
	path     string
	interval time.Duration
	changes  chan struct{}

	mu       sync.Mutex
	debounce *time.Timer
	fs       *fsnotify.Watcher

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatcher(path string, interval time.Duration) *Watcher {
	return &Watcher{
		path:     path,
		interval: interval,
		changes:  make(chan struct{}, 1),
	}
}

// Changes delivers coalesced change signals.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		if addErr := fsw.Add(dir); addErr != nil {
			_ = fsw.Close()
			fsw, err = nil, addErr
		}
	}
	if err != nil {
		slog.Warn("File notifications unavailable, polling only", "path", w.path, "error", err)
	}
	w.fs = fsw

	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}

	var err error
	if w.fs != nil {
		err = w.fs.Close()
	}
	w.wg.Wait()

	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w.fs != nil {
		events = w.fs.Events
		errs = w.fs.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.signal()
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			w.handleEvent(event)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("File watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceDelay, w.signal)
}

func (w *Watcher) signal() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
