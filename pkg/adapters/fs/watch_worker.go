package fs

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/aethel-dev/aethel/pkg/core"
)

const debounceWindow = 50 * time.Millisecond

// Watch reports document changes under docs/ until ctx is cancelled.
// The returned channel is closed when watching stops.
func (r *Repository) Watch(ctx context.Context) (<-chan core.Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &core.Error{Kind: core.KindIO, Msg: "failed to create watcher", Err: err}
	}

	known, err := r.recursiveAdd(watcher)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}

	events := make(chan core.Event, 64)
	w := &watchWorker{
		repo:      r,
		watcher:   watcher,
		events:    events,
		known:     known,
		debouncer: newDebouncer(debounceWindow),
	}
	r.setWatcherActive(true)

	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		if r.config.ErrorHandler != nil {
			r.config.ErrorHandler(fmt.Errorf("watcher failed: %w", err))
		} else if r.config.Logger != nil {
			r.config.Logger.Error("watcher failed", "error", err)
		}
	}))
	return events, nil
}

// recursiveAdd watches docs/ and every directory below it and returns the
// document paths that already exist.
func (r *Repository) recursiveAdd(watcher *fsnotify.Watcher) (map[string]bool, error) {
	if err := os.MkdirAll(r.DocsPath(), 0755); err != nil {
		return nil, &core.Error{Kind: core.KindIO, Path: r.DocsPath(), Err: err}
	}
	known := make(map[string]bool)
	err := filepath.WalkDir(r.DocsPath(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		if isDocFile(path) {
			known[path] = true
		}
		return nil
	})
	if err != nil {
		return nil, &core.Error{Kind: core.KindIO, Path: r.DocsPath(), Msg: "failed to watch documents", Err: err}
	}
	return known, nil
}

func (r *Repository) setWatcherActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcherActive = active
}

type watchWorker struct {
	repo      *Repository
	watcher   *fsnotify.Watcher
	events    chan core.Event
	known     map[string]bool
	debouncer *debouncer
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if logger := w.repo.config.Logger; logger != nil && logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			}
		}
	}()
	defer close(w.events)
	defer w.repo.setWatcherActive(false)
	defer w.watcher.Close()
	defer w.debouncer.stopAndWait()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.process(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			if w.repo.config.Logger != nil {
				w.repo.config.Logger.Error("fsnotify error", "error", wErr)
			}
			if w.repo.config.ErrorHandler != nil {
				w.repo.config.ErrorHandler(wErr)
			}
		}
	}
}

// process maps a filesystem event to a document event.
// Atomic saves surface as a Create of the final name, so a Create of a path
// already seen is reported as a modification.
func (w *watchWorker) process(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Create) && isDir(event.Name) {
		_ = w.watcher.Add(event.Name)
		return
	}
	if !isDocFile(event.Name) {
		return
	}
	id, err := uuid.Parse(strings.TrimSuffix(filepath.Base(event.Name), DocExt))
	if err != nil {
		return
	}

	var eType core.EventType
	switch {
	case event.Has(fsnotify.Create):
		eType = core.EventCreate
		if w.known[event.Name] {
			eType = core.EventModify
		}
		w.known[event.Name] = true
	case event.Has(fsnotify.Write):
		eType = core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		eType = core.EventDelete
		delete(w.known, event.Name)
	default:
		return
	}

	w.debouncer.add(core.Event{
		Type:      eType,
		ID:        id.String(),
		Path:      event.Name,
		Timestamp: time.Now().Unix(),
	}, func(e core.Event) {
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

func isDocFile(path string) bool {
	base := filepath.Base(path)
	return filepath.Ext(base) == DocExt && !strings.HasPrefix(base, TempFilePrefix)
}

// debouncer coalesces bursts of events for the same document.
// A pending Create is not downgraded by a following Modify.
type debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	pending map[string]*pendingEvent
	wg      sync.WaitGroup
	stopped bool
}

type pendingEvent struct {
	event core.Event
	timer *time.Timer
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{window: window, pending: make(map[string]*pendingEvent)}
}

func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if p, ok := d.pending[e.Path]; ok && p.timer.Stop() {
		if !(p.event.Type == core.EventCreate && e.Type == core.EventModify) {
			p.event = e
		}
		p.timer.Reset(d.window)
		return
	}

	p := &pendingEvent{event: e}
	d.wg.Add(1)
	p.timer = time.AfterFunc(d.window, func() {
		defer d.wg.Done()
		d.mu.Lock()
		ev := p.event
		if d.pending[e.Path] == p {
			delete(d.pending, e.Path)
		}
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			emit(ev)
		}
	})
	d.pending[e.Path] = p
}

// stopAndWait drops pending events and waits for in-flight emissions.
func (d *debouncer) stopAndWait() {
	d.mu.Lock()
	d.stopped = true
	for path, p := range d.pending {
		if p.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, path)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
