// Package storage is the persistence adapter: a tiny key-value store holding
// one serialized JSON snapshot per collection.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/stellarlinkco/mytodo/internal/apperr"
	"github.com/stellarlinkco/mytodo/internal/config"
	"go.uber.org/zap"
)

const (
	KeyTasks     = "tasks"
	KeyReminders = "foodReminders"
)

// KV loads and saves serialized snapshots by key. Load reports ok=false when
// nothing has been stored under key yet.
type KV interface {
	Load(key string) (value string, ok bool, err error)
	Save(key, value string) error
}

// Backend is a KV that owns resources.
type Backend interface {
	KV
	Close() error
}

// Open returns the backend selected by cfg.Backend.
func Open(cfg config.StorageConfig, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "", config.StorageBackendFile:
		return NewFile(cfg.Dir, logger)
	case config.StorageBackendSQLite:
		return NewSQLite(cfg.DBPath)
	case config.StorageBackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// LoadJSON decodes the snapshot stored under key into v. It returns false
// and leaves v untouched when the key is absent.
func LoadJSON(kv KV, key string, v any) (bool, error) {
	raw, ok, err := kv.Load(key)
	if err != nil {
		return false, apperr.Persistence(key, err)
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, apperr.Persistence(key, fmt.Errorf("decode: %w", err))
	}
	return true, nil
}

// SaveJSON stores the JSON encoding of v under key.
func SaveJSON(kv KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperr.Persistence(key, fmt.Errorf("encode: %w", err))
	}
	if err := kv.Save(key, string(data)); err != nil {
		return apperr.Persistence(key, err)
	}
	return nil
}
