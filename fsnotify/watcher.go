// Package fsnotify implements the filesystem watcher on top of the
// fsnotify library.
package fsnotify

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/fwojciec/differ"
)

// Compile-time interface verification.
var _ differ.Watcher = (*Watcher)(nil)

// Watcher watches a directory tree recursively and reduces raw fsnotify
// events to a single "something changed" signal. Bursty writers (editors,
// build tools) are pre-coalesced per debounce window; the reload
// coordinator debounces again on top.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	ignore   []string
	debounce time.Duration
	events   chan struct{}
	done     chan struct{}
}

// NewWatcher starts watching root and its subdirectories. Ignored
// subpaths (relative to root) are skipped and new directories are added
// as they appear.
func NewWatcher(root string, ignore []string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, differ.OpError("watch", root, err)
	}
	w := &Watcher{
		watcher:  fw,
		root:     root,
		ignore:   ignore,
		debounce: debounce,
		events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if err := w.addRecursive(root); err != nil {
		fw.Close()
		return nil, err
	}
	go w.loop()
	return w, nil
}

// Events returns the coalesced change signal channel.
func (w *Watcher) Events() <-chan struct{} { return w.events }

// Close stops watching and closes the events channel.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if !info.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		// Watch errors on individual directories are non-fatal.
		_ = w.watcher.Add(path)
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, ig := range w.ignore {
		if rel == ig || strings.HasPrefix(rel, ig+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// loop converts raw events into coalesced signals. A timer started by the
// first event in a burst fires once after the debounce window.
func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	defer close(w.events)
	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.ignored(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(ev.Name)
				}
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			}

		case <-fire:
			timer, fire = nil, nil
			select {
			case w.events <- struct{}{}:
			default: // a signal is already pending
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
