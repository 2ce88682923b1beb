package confloader

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := NewWatcher(WithWatcherLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	return w
}

func TestNewWatcher(t *testing.T) {
	w := newTestWatcher(t)
	defer w.Stop()

	if w.fsw == nil {
		t.Error("NewWatcher() fsnotify watcher is nil")
	}
	if w.settle != DefaultSettle {
		t.Errorf("settle = %v, want %v", w.settle, DefaultSettle)
	}
	if w.done == nil {
		t.Error("NewWatcher() done channel is nil")
	}
}

func TestNewWatcher_WithLogger(t *testing.T) {
	logger := quietLogger()
	w, err := NewWatcher(WithWatcherLogger(logger))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if w.logger != logger {
		t.Error("WithWatcherLogger() option not applied")
	}
}

func TestWatcher_Watch_NonexistentDir(t *testing.T) {
	w := newTestWatcher(t)
	defer w.Stop()

	if err := w.Watch("/nonexistent/dir/config.yaml"); err == nil {
		t.Error("Watch() should fail for a missing directory")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	w := newTestWatcher(t)
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	w.StartAsync()
	time.Sleep(50 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	w.Wait()

	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcher_FileChange(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	w := newTestWatcher(t)
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(p string) {
		select {
		case changed <- p:
		default:
		}
	})

	w.StartAsync()
	defer func() {
		w.Stop()
		w.Wait()
	}()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case p := <-changed:
		if filepath.Base(p) != "config.yaml" {
			t.Errorf("OnChange() path = %q, want config.yaml", p)
		}
	case <-time.After(2 * time.Second):
		t.Error("OnChange() callback was not triggered within timeout")
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	w := newTestWatcher(t)
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(p string) {
		select {
		case changed <- p:
		default:
		}
	})

	w.StartAsync()
	defer func() {
		w.Stop()
		w.Wait()
	}()
	time.Sleep(100 * time.Millisecond)

	sibling := filepath.Join(filepath.Dir(path), "dump.json")
	if err := os.WriteFile(sibling, []byte("{}"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case p := <-changed:
		t.Errorf("callback fired for unwatched file %q", p)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_ConcurrentCallbacks(t *testing.T) {
	w := newTestWatcher(t)
	defer w.Stop()

	var (
		count int
		mu    sync.Mutex
	)
	w.OnChange(func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.notify("/test/path")
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count != 100 {
		t.Errorf("Concurrent notifications: count = %d, want 100", count)
	}
}

func TestWatcher_CoalescesBurst(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	w, err := NewWatcher(WithWatcherLogger(quietLogger()), WithSettle(200*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(p string) { changed <- p })

	w.StartAsync()
	defer func() {
		w.Stop()
		w.Wait()
	}()
	time.Sleep(100 * time.Millisecond)

	for _, level := range []string{"debug", "warn", "error"} {
		if err := os.WriteFile(path, []byte("log:\n  level: "+level+"\n"), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange() callback was not triggered within timeout")
	}
	select {
	case p := <-changed:
		t.Errorf("burst reported more than once, extra change for %q", p)
	case <-time.After(500 * time.Millisecond):
	}
}
