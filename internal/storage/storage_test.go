package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stellarlinkco/mytodo/internal/apperr"
	"github.com/stellarlinkco/mytodo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()

	f, err := NewFile(filepath.Join(dir, "files"), zaptest.NewLogger(t))
	require.NoError(t, err)
	s, err := NewSQLite(filepath.Join(dir, "db", "todo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return map[string]Backend{
		"file":   f,
		"sqlite": s,
		"memory": NewMemory(),
	}
}

func TestBackends_LoadSave(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := kv.Load(KeyTasks)
			require.NoError(t, err)
			assert.False(t, ok, "missing key should report ok=false")

			require.NoError(t, kv.Save(KeyTasks, `[{"id":"1"}]`))
			require.NoError(t, kv.Save(KeyReminders, `[]`))
			require.NoError(t, kv.Save(KeyTasks, `[{"id":"2"}]`))

			v, ok, err := kv.Load(KeyTasks)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[{"id":"2"}]`, v)

			v, ok, err = kv.Load(KeyReminders)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[]`, v)
		})
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.db")

	s1, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s1.Save(KeyTasks, `["a"]`))
	require.NoError(t, s1.Close())

	s2, err := NewSQLite(path)
	require.NoError(t, err)
	defer s2.Close()
	v, ok, err := s2.Load(KeyTasks)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["a"]`, v)
}

func TestFile_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir, nil)
	require.NoError(t, err)

	require.NoError(t, f.Save(KeyTasks, "[]"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tasks.json", entries[0].Name())
}

func TestFile_WatchReportsExternalWritesOnly(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, f.Save(KeyTasks, "[]"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 10)
	require.NoError(t, f.Watch(ctx, func(key string) { changed <- key }))

	// Our own write must not come back as a change.
	require.NoError(t, f.Save(KeyTasks, `[{"id":"1"}]`))
	select {
	case key := <-changed:
		t.Fatalf("unexpected change notification for own write: %s", key)
	case <-time.After(300 * time.Millisecond):
	}

	// Another process rewrites the reminders file.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foodReminders.json"), []byte(`[{"id":"9"}]`), 0644))
	select {
	case key := <-changed:
		assert.Equal(t, KeyReminders, key)
	case <-time.After(3 * time.Second):
		t.Fatal("expected change notification for external write")
	}
}

func TestJSONHelpers(t *testing.T) {
	kv := NewMemory()

	var got []string
	ok, err := LoadJSON(kv, KeyTasks, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SaveJSON(kv, KeyTasks, []string{"a", "b"}))
	ok, err = LoadJSON(kv, KeyTasks, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 1, kv.Saves())

	require.NoError(t, kv.Save(KeyReminders, "{broken"))
	_, err = LoadJSON(kv, KeyReminders, &got)
	assert.ErrorIs(t, err, apperr.ErrPersistence)

	kv.SaveErr = errors.New("quota exceeded")
	err = SaveJSON(kv, KeyTasks, []string{"c"})
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	b, err := Open(config.StorageConfig{Backend: "file", Dir: dir}, nil)
	require.NoError(t, err)
	assert.IsType(t, &File{}, b)

	b, err = Open(config.StorageConfig{Backend: "sqlite", DBPath: filepath.Join(dir, "x.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, b)
	require.NoError(t, b.Close())

	b, err = Open(config.StorageConfig{Backend: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)

	_, err = Open(config.StorageConfig{Backend: "redis"}, nil)
	assert.Error(t, err)
}
