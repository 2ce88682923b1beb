package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Info describes a dump file that was written or read.
type Info struct {
	Path     string        `json:"path"`
	Entries  int           `json:"entries"`
	Size     int64         `json:"size"`
	Duration time.Duration `json:"-"`
}

// WriteFile writes entries to path, replacing any existing file.
//
// Missing parent directories are created. The data goes to a temporary
// file in the target directory first and is renamed over path once it has
// been synced, so readers never see a half-written dump.
func WriteFile(path string, entries map[string]string) (*Info, error) {
	start := time.Now()

	data, err := Marshal(entries)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	tempPath := tmp.Name()
	defer os.Remove(tempPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("snapshot: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: close: %w", err)
	}
	if err := os.Chmod(tempPath, 0640); err != nil {
		return nil, fmt.Errorf("snapshot: chmod: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return nil, fmt.Errorf("snapshot: rename: %w", err)
	}

	return &Info{
		Path:     path,
		Entries:  len(entries),
		Size:     int64(len(data)),
		Duration: time.Since(start),
	}, nil
}

// ReadFile reads and fully decodes the dump at path.
func ReadFile(path string) (map[string]string, *Info, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, nil, fmt.Errorf("snapshot: open: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: stat: %w", err)
	}
	if stat.IsDir() {
		return nil, nil, fmt.Errorf("snapshot: %s is a directory", path)
	}

	entries, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, nil, err
	}

	return entries, &Info{
		Path:     path,
		Entries:  len(entries),
		Size:     stat.Size(),
		Duration: time.Since(start),
	}, nil
}
