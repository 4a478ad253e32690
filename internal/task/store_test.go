package task

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stellarlinkco/mytodo/internal/apperr"
	"github.com/stellarlinkco/mytodo/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
}

func newStore(t *testing.T, kv storage.KV, c *fakeClock) *Store {
	t.Helper()
	s, err := NewStore(kv, WithClock(c.Now))
	require.NoError(t, err)
	return s
}

func TestStore_Add(t *testing.T) {
	kv := storage.NewMemory()
	c := newClock()
	s := newStore(t, kv, c)

	due := c.t.Add(20 * time.Minute)
	got, err := s.Add(Input{Text: "  Buy milk ", Priority: PriorityMedium, Category: CategoryPersonal, DueDate: &due})
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Buy milk", got.Text)
	assert.False(t, got.Completed)
	assert.Equal(t, PriorityMedium, got.Priority)
	assert.Equal(t, CategoryPersonal, got.Category)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))
	assert.Equal(t, got.CreatedAt, got.LastUpdated)

	active := s.Filter(FilterActive)
	require.Len(t, active, 1)
	assert.Equal(t, got.ID, active[0].ID)

	// Persisted as a full JSON array under "tasks".
	raw, ok, err := kv.Load(storage.KeyTasks)
	require.NoError(t, err)
	require.True(t, ok)
	var stored []Task
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, s.List(), stored)
}

func TestStore_AddDefaultsAndValidation(t *testing.T) {
	s := newStore(t, storage.NewMemory(), newClock())

	got, err := s.Add(Input{Text: "no priority"})
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, got.Priority)
	assert.Nil(t, got.DueDate)

	_, err = s.Add(Input{Text: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.Add(Input{Text: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.Equal(t, 1, s.Len(), "failed adds must not change the store")
}

func TestStore_AddDeleteRestoresSizeWithoutIDReuse(t *testing.T) {
	c := newClock()
	s := newStore(t, storage.NewMemory(), c)
	_, err := s.Add(Input{Text: "keep"})
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		before := s.Len()
		added, err := s.Add(Input{Text: "temp"})
		require.NoError(t, err)
		require.False(t, seen[added.ID], "id %s reused", added.ID)
		seen[added.ID] = true

		removed, err := s.Delete(added.ID)
		require.NoError(t, err)
		assert.Equal(t, added, removed)
		assert.Equal(t, before, s.Len())
	}
}

func TestStore_Edit(t *testing.T) {
	c := newClock()
	s := newStore(t, storage.NewMemory(), c)
	orig, err := s.Add(Input{Text: "draft", Priority: PriorityLow, Category: CategoryWork})
	require.NoError(t, err)

	c.Advance(time.Minute)
	edited, err := s.Edit(orig.ID, Input{Text: "final", Priority: PriorityHigh, Category: "Errands"})
	require.NoError(t, err)
	assert.Equal(t, orig.ID, edited.ID)
	assert.Equal(t, "final", edited.Text)
	assert.Equal(t, PriorityHigh, edited.Priority)
	assert.Equal(t, "Errands", edited.Category)
	assert.Equal(t, orig.CreatedAt, edited.CreatedAt)
	assert.True(t, edited.LastUpdated.After(edited.CreatedAt))

	_, err = s.Edit("missing", Input{Text: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.Edit(orig.ID, Input{Text: ""})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	got, _ := s.Get(orig.ID)
	assert.Equal(t, "final", got.Text)
}

func TestStore_Toggle(t *testing.T) {
	c := newClock()
	s := newStore(t, storage.NewMemory(), c)
	added, err := s.Add(Input{Text: "walk"})
	require.NoError(t, err)

	c.Advance(time.Second)
	toggled, err := s.Toggle(added.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	assert.False(t, toggled.LastUpdated.Before(toggled.CreatedAt))

	toggled, err = s.Toggle(added.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)

	_, err = s.Toggle("nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStore_LastUpdatedNeverBeforeCreatedAt(t *testing.T) {
	c := newClock()
	s := newStore(t, storage.NewMemory(), c)
	added, err := s.Add(Input{Text: "clock skew"})
	require.NoError(t, err)

	c.Advance(-time.Hour)
	toggled, err := s.Toggle(added.ID)
	require.NoError(t, err)
	assert.Equal(t, toggled.CreatedAt, toggled.LastUpdated)
}

func TestStore_Delete(t *testing.T) {
	s := newStore(t, storage.NewMemory(), newClock())
	_, err := s.Delete("ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStore_FilterPartitions(t *testing.T) {
	s := newStore(t, storage.NewMemory(), newClock())
	var ids []string
	for _, text := range []string{"a", "b", "c", "d", "e"} {
		added, err := s.Add(Input{Text: text})
		require.NoError(t, err)
		ids = append(ids, added.ID)
	}
	for _, id := range []string{ids[1], ids[3]} {
		_, err := s.Toggle(id)
		require.NoError(t, err)
	}

	all := s.Filter(FilterAll)
	active := s.Filter(FilterActive)
	completed := s.Filter(FilterCompleted)
	assert.Len(t, active, 3)
	assert.Len(t, completed, 2)

	union := map[string]bool{}
	for _, task := range append(active, completed...) {
		union[task.ID] = true
	}
	require.Len(t, union, len(all))
	for _, task := range all {
		assert.True(t, union[task.ID])
	}

	// Insertion order is kept.
	assert.Equal(t, []string{"a", "c", "e"}, texts(active))
	assert.Equal(t, []string{"b", "d"}, texts(completed))

	empty := newStore(t, storage.NewMemory(), newClock())
	assert.NotNil(t, empty.Filter(FilterCompleted))
	assert.Empty(t, empty.Filter(FilterCompleted))
}

func texts(ts []Task) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Text)
	}
	return out
}

func TestStore_Progress(t *testing.T) {
	s := newStore(t, storage.NewMemory(), newClock())
	p := s.Progress()
	assert.Equal(t, 0.0, p.Ratio())
	assert.Equal(t, 0, p.Percent())

	var ids []string
	for i := 0; i < 3; i++ {
		added, err := s.Add(Input{Text: "t"})
		require.NoError(t, err)
		ids = append(ids, added.ID)
	}
	_, err := s.Toggle(ids[0])
	require.NoError(t, err)

	p = s.Progress()
	assert.Equal(t, Progress{Completed: 1, Total: 3}, p)
	assert.Equal(t, 1.0/3.0, p.Ratio())
	assert.Equal(t, 33, p.Percent())

	_, err = s.Toggle(ids[1])
	require.NoError(t, err)
	assert.Equal(t, 67, s.Progress().Percent())
}

func TestStore_PersistenceFailureKeepsMutation(t *testing.T) {
	kv := storage.NewMemory()
	s := newStore(t, kv, newClock())
	kv.SaveErr = errors.New("quota exceeded")

	added, err := s.Add(Input{Text: "unsaved"})
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.NotEmpty(t, added.ID)
	_, ok := s.Get(added.ID)
	assert.True(t, ok, "in-memory mutation is not rolled back")
}

func TestStore_ReloadAndIDsAfterRestart(t *testing.T) {
	kv := storage.NewMemory()
	c := newClock()
	s1 := newStore(t, kv, c)
	first, err := s1.Add(Input{Text: "one"})
	require.NoError(t, err)

	// A second process with the same clock must not reuse the id.
	s2 := newStore(t, kv, c)
	require.Len(t, s2.List(), 1)
	second, err := s2.Add(Input{Text: "two"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	require.NoError(t, s1.Reload())
	assert.Equal(t, []string{"one", "two"}, texts(s1.List()))
}

func TestStore_LoadsBrowserDocuments(t *testing.T) {
	kv := storage.NewMemory()
	require.NoError(t, kv.Save(storage.KeyTasks, `[
		{"id":"1700000000000","text":"legacy","completed":true,"priority":"high","category":"Work","dueDate":"","createdAt":"2023-11-14T22:13:20.000Z","lastUpdated":"2023-11-14T22:13:20.000Z"},
		{"id":"1700000000001","text":"due","completed":false,"priority":"low","category":"Gym","dueDate":"2023-11-15T12:00:00.000Z","createdAt":"2023-11-14T22:13:20.000Z","lastUpdated":"2023-11-14T22:13:20.000Z"}
	]`))

	s := newStore(t, kv, newClock())
	all := s.List()
	require.Len(t, all, 2)
	assert.Nil(t, all[0].DueDate)
	require.NotNil(t, all[1].DueDate)
	assert.Equal(t, time.Date(2023, 11, 15, 12, 0, 0, 0, time.UTC), all[1].DueDate.UTC())
}

func TestResolveCategory(t *testing.T) {
	assert.Equal(t, "Work", ResolveCategory("Work", "ignored"))
	assert.Equal(t, "Garden", ResolveCategory("Custom", "  Garden "))
	assert.Equal(t, "Custom", ResolveCategory("Custom", "   "))
	assert.True(t, IsPredefined("Health"))
	assert.False(t, IsPredefined("Garden"))
}

func TestParseFilterAndPriority(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)
	f, err = ParseFilter("Completed")
	require.NoError(t, err)
	assert.Equal(t, FilterCompleted, f)
	_, err = ParseFilter("archived")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	p, err := ParsePriority("HIGH")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)
	_, err = ParsePriority("asap")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestTask_DueWithin(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time { v := now.Add(d); return &v }

	assert.True(t, Task{DueDate: at(20 * time.Minute)}.DueWithin(now, 30*time.Minute))
	assert.True(t, Task{DueDate: at(30 * time.Minute)}.DueWithin(now, 30*time.Minute))
	assert.False(t, Task{DueDate: at(31 * time.Minute)}.DueWithin(now, 30*time.Minute))
	assert.False(t, Task{DueDate: at(0)}.DueWithin(now, 30*time.Minute))
	assert.False(t, Task{DueDate: at(-time.Minute)}.DueWithin(now, 30*time.Minute))
	assert.False(t, Task{DueDate: at(time.Minute), Completed: true}.DueWithin(now, 30*time.Minute))
	assert.False(t, Task{}.DueWithin(now, 30*time.Minute))
}
