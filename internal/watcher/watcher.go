// Package watcher monitors the open document's save file for changes made
// outside the editor, so the embedding application can warn before
// overwriting work another process touched.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event reports an external change to the watched document.
type Event struct {
	Path    string
	ModTime time.Time
}

// Watcher debounces filesystem notifications for one save path. Writes the
// editor makes itself are announced via Suppress so they do not come back
// as external changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	path      string
	debounce  time.Duration

	mu         sync.Mutex
	dirtyAt    time.Time
	suppressAt time.Time

	events chan Event
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher for the document at path. debounceMs is how long
// the file must stay quiet before a change is reported.
func New(path string, debounceMs int) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		path:      abs,
		debounce:  time.Duration(debounceMs) * time.Millisecond,
		events:    make(chan Event, 16),
		errors:    make(chan error, 4),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the channel of debounced external-change events.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Suppress marks the current change window as the editor's own save.
// Filesystem events landing until the window closes are not reported.
func (w *Watcher) Suppress() {
	w.mu.Lock()
	w.suppressAt = time.Now()
	w.mu.Unlock()
}

// Start begins watching. The save file's directory is watched rather than
// the file itself so atomic rename-into-place saves are seen.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()
	return nil
}

// Stop shuts the watcher down and closes its channels.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsWatcher.Close()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.dirtyAt = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	tick := w.debounce / 4
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

// flush reports a change once the file has been quiet for the debounce
// window. A change whose last write falls inside a suppressed window is
// the editor's own save and is dropped.
func (w *Watcher) flush(now time.Time) {
	w.mu.Lock()
	if w.dirtyAt.IsZero() || now.Sub(w.dirtyAt) < w.debounce {
		w.mu.Unlock()
		return
	}
	suppressed := !w.suppressAt.IsZero() && w.dirtyAt.Sub(w.suppressAt) < w.debounce
	w.dirtyAt = time.Time{}
	w.suppressAt = time.Time{}
	w.mu.Unlock()

	if suppressed {
		return
	}

	ev := Event{Path: w.path}
	if info, err := os.Stat(w.path); err == nil {
		ev.ModTime = info.ModTime()
	}
	select {
	case w.events <- ev:
	default:
	}
}
