package registry

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher is a registry over a plugin descriptor directory that caches the
// parsed descriptor set and invalidates it on filesystem events, for
// embedding in long-lived processes where re-parsing on every lookup would
// be wasteful. Close releases the underlying filesystem watcher.
type Watcher struct {
	dir *Dir
	fsw *fsnotify.Watcher

	mu     sync.RWMutex
	cached *Static

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher creates a watching registry over dir. The directory must exist.
func NewWatcher(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch descriptor directory: %w", err)
	}

	w := &Watcher{
		dir:  NewDir(dir),
		fsw:  fsw,
		done: make(chan struct{}),
	}
	w.cached = w.dir.load()

	w.wg.Add(1)
	go w.eventLoop()

	return w, nil
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.invalidate()
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// A watch error means events may have been missed; drop the
			// cache so the next lookup re-reads the directory.
			w.invalidate()
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) invalidate() {
	w.mu.Lock()
	w.cached = nil
	w.mu.Unlock()
}

func (w *Watcher) snapshot() *Static {
	w.mu.RLock()
	s := w.cached
	w.mu.RUnlock()
	if s != nil {
		return s
	}

	s = w.dir.load()
	w.mu.Lock()
	w.cached = s
	w.mu.Unlock()
	return s
}

// Lookup returns the descriptor for (plugin, name), if installed.
func (w *Watcher) Lookup(plugin, name string) (Descriptor, bool) {
	return w.snapshot().Lookup(plugin, name)
}

// All returns every installed descriptor, ordered by plugin then name.
func (w *Watcher) All() []Descriptor {
	return w.snapshot().All()
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
