package config

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay is how long the watcher waits for a burst of file
// events to settle before reloading.
const DefaultReloadDelay = 100 * time.Millisecond

// ReloadFunc receives the result of every reload. cfg is nil when err is set.
type ReloadFunc func(cfg *Config, err error)

// Watcher reloads the configuration when its file changes.
//
// The containing directory is watched rather than the file itself so that
// editors replacing the file by rename are noticed.
type Watcher struct {
	opts    Options
	path    string
	delay   time.Duration
	onLoad  ReloadFunc
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	closed  bool
	closeCh chan struct{}
	doneCh  chan struct{}
}

// Watch starts watching opts.Path. onLoad is called from the watcher
// goroutine after each settled change.
func Watch(opts Options, delay time.Duration, onLoad ReloadFunc) (*Watcher, error) {
	if opts.Path == "" {
		return nil, errors.New("config: watch requires a file path")
	}
	if onLoad == nil {
		return nil, errors.New("config: watch requires a reload function")
	}
	if delay <= 0 {
		delay = DefaultReloadDelay
	}

	path, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		opts:    opts,
		path:    path,
		delay:   delay,
		onLoad:  onLoad,
		watcher: fsw,
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.closeCh)
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.doneCh
	return err
}

func (w *Watcher) loop() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.onLoad(nil, err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename)
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	cfg, err := Load(w.opts)
	if err != nil {
		w.onLoad(nil, err)
		return
	}
	w.onLoad(cfg, nil)
}
