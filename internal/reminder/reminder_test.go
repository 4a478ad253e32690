package reminder

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stellarlinkco/mytodo/internal/apperr"
	"github.com/stellarlinkco/mytodo/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, kv storage.KV) *Store {
	t.Helper()
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	s, err := NewStore(kv, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return s
}

func TestStore_AddNormalizesTime(t *testing.T) {
	kv := storage.NewMemory()
	s := newStore(t, kv)

	r, err := s.Add(" Lunch ", "9:05")
	require.NoError(t, err)
	assert.Equal(t, "Lunch", r.Text)
	assert.Equal(t, "09:05", r.Time)
	assert.NotEmpty(t, r.ID)

	reloaded := newStore(t, kv)
	assert.Equal(t, s.List(), reloaded.List())
}

func TestStore_AddValidation(t *testing.T) {
	s := newStore(t, storage.NewMemory())

	for _, tc := range []struct{ text, clock string }{
		{"", "12:00"},
		{"   ", "12:00"},
		{"Dinner", ""},
		{"Dinner", "25:00"},
		{"Dinner", "12:60"},
		{"Dinner", "noon"},
		{"Dinner", "12"},
	} {
		_, err := s.Add(tc.text, tc.clock)
		assert.ErrorIs(t, err, apperr.ErrValidation, "Add(%q, %q)", tc.text, tc.clock)
	}
	assert.Equal(t, 0, s.Len())
}

func TestStore_Delete(t *testing.T) {
	s := newStore(t, storage.NewMemory())
	r, err := s.Add("Snack", "16:00")
	require.NoError(t, err)

	removed, err := s.Delete(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, removed)
	assert.Equal(t, 0, s.Len())

	_, err = s.Delete(r.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStore_SortedIsStableAndOrdered(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	clocks := []string{"13:00", "08:30", "19:45", "08:30", "00:00", "13:00", "23:59", "8:30"}

	for round := 0; round < 10; round++ {
		s := newStore(t, storage.NewMemory())
		order := rng.Perm(len(clocks))
		for i, idx := range order {
			_, err := s.Add(fmt.Sprintf("r%d", i), clocks[idx])
			require.NoError(t, err)
		}

		sorted := s.Sorted()
		require.Len(t, sorted, len(clocks))
		assert.True(t, sort.SliceIsSorted(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time }))

		// Ties keep insertion order, which is id order for a single store.
		for i := 1; i < len(sorted); i++ {
			if sorted[i-1].Time == sorted[i].Time {
				assert.Less(t, sorted[i-1].ID, sorted[i].ID)
			}
		}
	}
}

func TestReminder_On(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	day := time.Date(2026, 10, 15, 22, 10, 0, 0, loc)

	at, err := Reminder{Time: "13:00"}.On(day)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 15, 13, 0, 0, 0, loc), at)

	_, err = Reminder{Time: "bogus"}.On(day)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "12:00 AM", FormatClock("00:00"))
	assert.Equal(t, "9:05 AM", FormatClock("09:05"))
	assert.Equal(t, "12:30 PM", FormatClock("12:30"))
	assert.Equal(t, "1:00 PM", FormatClock("13:00"))
	assert.Equal(t, "junk", FormatClock("junk"))
}

func TestStore_ReloadNormalizesTimes(t *testing.T) {
	kv := storage.NewMemory()
	require.NoError(t, kv.Save(storage.KeyReminders, `[
  {"id": "1", "text": "Lunch", "time": "13:00"},
  {"id": "2", "text": "Breakfast", "time": "9:00"},
  {"id": "3", "text": "Broken", "time": "soon"}
]`))
	s := newStore(t, kv)

	sorted := s.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, []string{"09:00", "13:00", "soon"}, []string{sorted[0].Time, sorted[1].Time, sorted[2].Time})
}

func TestNormalizeClock(t *testing.T) {
	got, err := NormalizeClock(" 7:05 ")
	require.NoError(t, err)
	assert.Equal(t, "07:05", got)

	_, err = NormalizeClock("24:00")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
