// Package watch reports when files on disk change so the viewer can
// reload the model it is showing.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/logger"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 250 * time.Millisecond

// Watcher delivers the path of a watched file once its events settle.
// It watches the file's directory, so saves that write a temporary file and
// rename it over the original are seen as well.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	log      *zap.Logger

	mu    sync.Mutex
	files map[string]struct{}
	dirs  map[string]int

	changes   chan string
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// New starts a watcher. A non-positive debounce uses DefaultDebounce.
func New(debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		fs:       fs,
		debounce: debounce,
		log:      logger.Log.Named("watch"),
		files:    make(map[string]struct{}),
		dirs:     make(map[string]int),
		changes:  make(chan string, 8),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes delivers changed file paths, cleaned and absolute.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Add starts watching path. Adding a watched path again is a no-op.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[abs]; ok {
		return nil
	}
	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
	w.dirs[dir]++
	w.files[abs] = struct{}{}
	w.log.Debug("watching file", zap.String("path", abs))
	return nil
}

// Remove stops watching path. Unknown paths are ignored.
func (w *Watcher) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("unwatch %s: %w", path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[abs]; !ok {
		return nil
	}
	delete(w.files, abs)
	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return nil
	}
	delete(w.dirs, dir)
	if err := w.fs.Remove(dir); err != nil {
		return fmt.Errorf("unwatch %s: %w", path, err)
	}
	return nil
}

// Watched returns the number of watched files.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.files)
}

// Close stops the watcher. Changes is closed once the loop exits.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
		<-w.stopped
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.stopped)
	defer close(w.changes)

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			timer.Stop()
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			path, relevant := w.relevant(ev)
			if !relevant {
				continue
			}
			pending[path] = struct{}{}
			timer.Reset(w.debounce)
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-fire:
			fire = nil
			for path := range pending {
				w.log.Debug("file changed", zap.String("path", path))
				select {
				case w.changes <- path:
				case <-w.done:
					return
				}
			}
			clear(pending)
		}
	}
}

// relevant reports whether ev rewrote a watched file.
func (w *Watcher) relevant(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return "", false
	}
	path := filepath.Clean(ev.Name)
	w.mu.Lock()
	_, ok := w.files[path]
	w.mu.Unlock()
	return path, ok
}
