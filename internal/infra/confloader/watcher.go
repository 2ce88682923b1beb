package confloader

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must stay quiet after an event before
// the change is reported.
const DefaultSettle = 100 * time.Millisecond

// Watcher reports changes of configuration files.
//
// The parent directory is watched rather than the file itself, so editors
// that save by renaming a temporary file are still noticed. Events for
// other files in that directory are ignored. A burst of events for one file
// is reported once, after it has settled.
type Watcher struct {
	fsw    *fsnotify.Watcher
	settle time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	files    map[string]struct{}
	handlers []func(string)

	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// WithSettle sets how long events must stop before a change is reported.
// Zero reports every event.
func WithSettle(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.settle = d }
}

// NewWatcher creates a watcher. Add files with Watch, then call Start or
// StartAsync.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:    fsw,
		settle: DefaultSettle,
		logger: slog.Default(),
		files:  make(map[string]struct{}),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch adds path to the watched files.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	w.mu.Lock()
	w.files[abs] = struct{}{}
	w.mu.Unlock()

	w.logger.Debug("watching config file", "path", abs)
	return nil
}

// OnChange registers fn to run with the absolute path of a changed file.
// Handlers run on the watcher goroutine, one after another.
func (w *Watcher) OnChange(fn func(string)) {
	w.mu.Lock()
	w.handlers = append(w.handlers, fn)
	w.mu.Unlock()
}

// Start processes events until Stop is called.
func (w *Watcher) Start() {
	defer close(w.exited)

	pending := make(map[string]struct{})
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			path, ok := w.match(ev)
			if !ok {
				continue
			}
			if w.settle <= 0 {
				w.notify(path)
				continue
			}
			pending[path] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.settle)
			} else {
				timer.Reset(w.settle)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			for path := range pending {
				w.notify(path)
			}
			clear(pending)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// StartAsync runs Start in a new goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops the watcher. It does not wait for Start to return; use Wait
// for that. Calling Stop again returns nil.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

// Wait blocks until a running Start has returned.
func (w *Watcher) Wait() {
	<-w.exited
}

// match returns the absolute path of ev when it writes or creates a
// watched file.
func (w *Watcher) match(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return "", false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return "", false
	}

	w.mu.RLock()
	_, ok := w.files[abs]
	w.mu.RUnlock()
	return abs, ok
}

func (w *Watcher) notify(path string) {
	w.logger.Debug("config file changed", "path", path)

	w.mu.RLock()
	handlers := w.handlers
	w.mu.RUnlock()
	for _, fn := range handlers {
		fn(path)
	}
}
