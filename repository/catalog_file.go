package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"tunevault/logger"

	"github.com/fsnotify/fsnotify"
)

// catalogFile is one JSON-array backing file of the catalog. It does not
// lock; the owning repository serializes all access. A watcher on the data
// directory flags external modifications so the repository knows to reload
// its in-memory snapshot.
type catalogFile struct {
	path    string
	dirty   atomic.Bool
	watcher *fsnotify.Watcher
}

func newCatalogFile(dataDir, name string) (*catalogFile, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}

	f := &catalogFile{path: filepath.Join(dataDir, name)}
	f.dirty.Store(true) // force the first read to hit disk

	if err := f.watch(dataDir); err != nil {
		// Without a watcher every read falls back to disk, which is
		// still correct, just slower.
		logger.Warn("catalog file watcher unavailable",
			logger.String("path", f.path),
			logger.ErrorField(err))
		return f, nil
	}
	return f, nil
}

// watch flags the file dirty whenever something else touches it on disk.
func (f *catalogFile) watch(dataDir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dataDir); err != nil {
		watcher.Close()
		return err
	}

	f.watcher = watcher
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != f.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					f.dirty.Store(true)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("catalog file watcher error",
					logger.String("path", f.path),
					logger.ErrorField(err))
			}
		}
	}()
	return nil
}

// close stops the watcher and its goroutine. Reads after close fall back
// to hitting disk only when the snapshot was already flagged stale.
func (f *catalogFile) close() error {
	if f.watcher == nil {
		return nil
	}
	return f.watcher.Close()
}

// stale reports whether the in-memory snapshot may be behind the disk copy.
func (f *catalogFile) stale() bool {
	return f.dirty.Load()
}

// read decodes the backing file into v. A missing, empty, or unparseable
// file is treated as an empty collection: the file is rewritten as "[]" and
// v is left at its zero value. Corruption is never surfaced to the caller.
func (f *catalogFile) read(v any) error {
	data, err := os.ReadFile(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	if err == nil && len(data) > 0 {
		if jsonErr := json.Unmarshal(data, v); jsonErr == nil {
			f.dirty.Store(false)
			return nil
		}
		logger.Warn("catalog file is corrupt, resetting to empty collection",
			logger.String("path", f.path))
	}

	if err := f.writeRaw([]byte("[]")); err != nil {
		return err
	}
	f.dirty.Store(false)
	return nil
}

// write serializes v and atomically replaces the backing file.
func (f *catalogFile) write(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize collection for %s: %w", f.path, err)
	}
	return f.writeRaw(data)
}

func (f *catalogFile) writeRaw(data []byte) error {
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}
