package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// File keeps each key in <dir>/<key>.json. Writes go through a temp file and
// a rename so readers never observe a half-written snapshot.
type File struct {
	dir    string
	logger *zap.Logger

	mu      sync.Mutex
	written map[string]string // key -> last content written or seen by this process
}

func NewFile(dir string, logger *zap.Logger) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("file storage: dir is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &File{
		dir:     dir,
		logger:  logger.Named("storage"),
		written: make(map[string]string),
	}, nil
}

func (f *File) Dir() string { return f.dir }

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *File) Load(key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	f.mu.Lock()
	f.written[key] = string(data)
	f.mu.Unlock()
	return string(data), true, nil
}

func (f *File) Save(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, "."+key+".json.tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		os.Remove(tmpName)
		return err
	}
	f.written[key] = value
	return nil
}

func (f *File) Close() error { return nil }

// Watch calls onChange with the key whenever another process rewrites one of
// the snapshot files. Writes made through this File are not reported. Watch
// returns once the watcher is installed; it stops when ctx is done.
func (f *File) Watch(ctx context.Context, onChange func(key string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(f.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", f.dir, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				key, ok := f.keyFor(ev.Name)
				if !ok {
					continue
				}
				if f.unchanged(key) {
					continue
				}
				f.logger.Debug("external change", zap.String("key", key), zap.String("op", ev.Op.String()))
				onChange(key)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				f.logger.Warn("watch error", zap.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (f *File) keyFor(name string) (string, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, ".json") {
		return "", false
	}
	return strings.TrimSuffix(base, ".json"), true
}

// unchanged reports whether the file for key still holds what this process
// last wrote or read, and records the new content otherwise.
func (f *File) unchanged(key string) bool {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.written[key]; ok && prev == string(data) {
		return true
	}
	f.written[key] = string(data)
	return false
}
