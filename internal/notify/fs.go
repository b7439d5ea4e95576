package notify

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/zoravur/liveq/internal/reactive"
)

// FSWatcher surfaces filesystem paths as lazy notifiers. Parent directories
// are watched (so file creation is observed) with refcounts, the underlying
// fsnotify watcher exists only while at least one path has subscribers, and
// repeated subscribe/unsubscribe churn leaks nothing.
type FSWatcher struct {
	log *zap.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	paths   map[string]*fsPath
	dirs    map[string]int // watched dir -> refcount
}

type fsPath struct {
	notifier *reactive.Notifier
	active   bool
}

func NewFSWatcher() *FSWatcher {
	return &FSWatcher{
		log:   zap.L().Named("fsnotify"),
		paths: make(map[string]*fsPath),
		dirs:  make(map[string]int),
	}
}

// NotifierFor returns the shared notifier for one path. It fires on create,
// write, remove and rename of that exact path; no initial tick is emitted.
func (w *FSWatcher) NotifierFor(path string) *reactive.Notifier {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.paths[abs]
	if !ok {
		p = &fsPath{}
		p.notifier = reactive.NewLazyNotifier(
			func() { w.watch(abs) },
			func() { w.unwatch(abs) },
		)
		w.paths[abs] = p
	}
	return p.notifier
}

func (w *FSWatcher) watch(abs string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.paths[abs]
	if p == nil || p.active {
		return
	}

	if w.watcher == nil {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			w.log.Error("watcher create failed", zap.Error(err))
			return
		}
		w.watcher = watcher
		w.done = make(chan struct{})
		go w.loop(watcher, w.done)
	}

	dir := filepath.Dir(abs)
	w.dirs[dir]++
	if w.dirs[dir] == 1 {
		if err := w.watcher.Add(dir); err != nil {
			w.log.Warn("watch add failed", zap.String("dir", dir), zap.Error(err))
		}
	}
	p.active = true
}

func (w *FSWatcher) unwatch(abs string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.paths[abs]
	if p == nil || !p.active {
		return
	}
	p.active = false

	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if w.watcher != nil {
			w.watcher.Remove(dir)
		}
	}

	if len(w.dirs) == 0 && w.watcher != nil {
		close(w.done)
		w.watcher.Close()
		w.watcher = nil
		w.done = nil
	}
}

func (w *FSWatcher) loop(watcher *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.dispatch(filepath.Clean(event.Name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *FSWatcher) dispatch(abs string) {
	w.mu.Lock()
	p := w.paths[abs]
	active := p != nil && p.active
	w.mu.Unlock()

	// Fan-out happens outside the watcher lock so a subscriber reacting to
	// the event cannot deadlock the event loop.
	if active {
		p.notifier.Notify()
	}
}
