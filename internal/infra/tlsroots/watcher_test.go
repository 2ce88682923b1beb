package tlsroots

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func currentCert(t *testing.T, w *Watcher) []byte {
	t.Helper()
	cert, err := w.GetCertificate(nil)
	if err != nil || cert == nil || len(cert.Certificate) == 0 {
		t.Fatalf("GetCertificate() = %v, %v", cert, err)
	}
	return cert.Certificate[0]
}

func TestNewWatcher(t *testing.T) {
	certFile, keyFile, _ := writeKeyPair(t, t.TempDir(), 1)

	w, err := NewWatcher(certFile, keyFile, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	currentCert(t, w)
	if w.Reloads() != 1 {
		t.Errorf("Reloads() = %d, want 1", w.Reloads())
	}
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
}

func TestNewWatcher_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.pem")
	if err := os.WriteFile(bad, []byte("invalid"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cert string
		key  string
	}{
		{"invalid files", bad, bad},
		{"missing files", "/nonexistent/cert.pem", "/nonexistent/key.pem"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewWatcher(tt.cert, tt.key); err == nil {
				t.Error("NewWatcher() should fail")
			}
		})
	}
}

func TestWatcher_ReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile, _ := writeKeyPair(t, dir, 1)

	w, err := NewWatcher(certFile, keyFile, WithLogger(quietLogger()), WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.StartAsync()
	defer func() {
		w.Stop()
		w.Wait()
	}()

	before := currentCert(t, w)
	writeKeyPair(t, dir, 2)

	deadline := time.Now().Add(5 * time.Second)
	for bytes.Equal(currentCert(t, w), before) {
		if time.Now().After(deadline) {
			t.Fatal("certificate was not reloaded")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if w.Reloads() < 2 {
		t.Errorf("Reloads() = %d, want at least 2", w.Reloads())
	}
}

func TestWatcher_BrokenFileKeepsCertificate(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile, _ := writeKeyPair(t, dir, 1)

	w, err := NewWatcher(certFile, keyFile, WithLogger(quietLogger()), WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.StartAsync()
	defer func() {
		w.Stop()
		w.Wait()
	}()

	before := currentCert(t, w)
	if err := os.WriteFile(certFile, []byte("truncated"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if !bytes.Equal(currentCert(t, w), before) {
		t.Error("a broken certificate file should leave the previous certificate in place")
	}
	if w.Reloads() != 1 {
		t.Errorf("Reloads() = %d, want 1", w.Reloads())
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile, _ := writeKeyPair(t, dir, 1)

	w, err := NewWatcher(certFile, keyFile, WithLogger(quietLogger()), WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.StartAsync()
	defer func() {
		w.Stop()
		w.Wait()
	}()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if w.Reloads() != 1 {
		t.Errorf("Reloads() = %d, want 1", w.Reloads())
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	certFile, keyFile, _ := writeKeyPair(t, t.TempDir(), 1)

	w, err := NewWatcher(certFile, keyFile, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.StartAsync()

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	w.Wait()
}
