package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mvp-joe/mcpline/internal/protocol"
)

// watchDebounce absorbs the burst of events most editors emit for a
// single logical save (rename-into-place, multiple writes).
const watchDebounce = 300 * time.Millisecond

// ChangeEvent carries either a freshly reloaded, validated Config or the
// error that reloading it produced. The previous Config stays in effect
// on an error; it is up to the caller to decide whether to keep running
// on the old config or treat a bad reload as fatal.
type ChangeEvent struct {
	Config protocol.Config
	Err    error
}

// Watcher reloads a config file on change and reports the result on
// Changes. Adapted from the teacher's internal/watcher/file_watcher.go
// debounce pattern (a timer reset on every event, firing once a quiet
// period elapses), narrowed here to a single file instead of a
// recursively watched directory tree.
type Watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	Changes chan ChangeEvent

	timer *time.Timer
	done  chan struct{}
}

// Watch starts watching path's directory (editors commonly replace a
// file via rename-into-place, which fsnotify only observes on the
// containing directory) for changes to that one file. Call Close when
// done; Changes is closed after Close returns.
func Watch(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", dir, err)
	}

	w := &Watcher{
		path:    path,
		fsw:     fsw,
		Changes: make(chan ChangeEvent, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.Changes)
	defer w.fsw.Close()

	fire := make(chan struct{}, 1)

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(w.path) {
				continue
			}
			w.resetTimer(fire)

		case <-w.fsw.Errors:
			// A watch-layer error (e.g. a removed directory) does not
			// invalidate the last known good config; the next Changes
			// event, if the watch recovers, carries the real update.

		case <-fire:
			cfg, err := Load(w.path)
			w.Changes <- ChangeEvent{Config: cfg, Err: err}
		}
	}
}

func (w *Watcher) resetTimer(fire chan struct{}) {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

// Close stops the watcher. Safe to call once.
func (w *Watcher) Close() {
	close(w.done)
}
