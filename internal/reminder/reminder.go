// Package reminder holds the daily food reminders.
package reminder

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stellarlinkco/mytodo/internal/apperr"
	"github.com/stellarlinkco/mytodo/internal/ident"
	"github.com/stellarlinkco/mytodo/internal/storage"
	"github.com/stellarlinkco/mytodo/internal/validate"
)

const clockLayout = "15:04"

type Reminder struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Time      string    `json:"time"` // "HH:MM"
	CreatedAt time.Time `json:"createdAt"`
}

// On returns the reminder's moment on day's calendar date, in day's location.
func (r Reminder) On(day time.Time) (time.Time, error) {
	h, m, err := ParseClock(r.Time)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, 0, 0, day.Location()), nil
}

// ParseClock parses "H:MM" or "HH:MM" on a 24-hour clock.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, 0, apperr.Validation("time %q must be a time of day (HH:MM)", s)
	}
	return t.Hour(), t.Minute(), nil
}

// NormalizeClock returns s as a zero-padded "HH:MM".
func NormalizeClock(s string) (string, error) {
	h, m, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// FormatClock renders a "HH:MM" value on a 12-hour clock, e.g. "1:05 PM".
func FormatClock(s string) string {
	h, m, err := ParseClock(s)
	if err != nil {
		return s
	}
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	display := h % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, m, period)
}

type input struct {
	Text string `json:"text" validate:"required,max=500"`
	Time string `json:"time" validate:"required,datetime=15:04"`
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store keeps reminders in insertion order and persists them under
// storage.KeyReminders after each mutation.
type Store struct {
	mu        sync.Mutex
	kv        storage.KV
	reminders []Reminder
	now       func() time.Time
	ids       *ident.Generator
}

func NewStore(kv storage.KV, opts ...Option) (*Store, error) {
	s := &Store{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.ids = ident.New(s.now)
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Reload() error {
	var loaded []Reminder
	if _, err := storage.LoadJSON(s.kv, storage.KeyReminders, &loaded); err != nil {
		return err
	}
	// Files edited by hand may hold "9:00"; keep the padded form in memory.
	for i := range loaded {
		if clock, err := NormalizeClock(loaded[i].Time); err == nil {
			loaded[i].Time = clock
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = loaded
	for _, r := range loaded {
		s.ids.Observe(r.ID)
	}
	return nil
}

func (s *Store) Add(text, clock string) (Reminder, error) {
	in := input{Text: strings.TrimSpace(text), Time: strings.TrimSpace(clock)}
	if err := validate.Struct(in); err != nil {
		return Reminder{}, err
	}
	clock, err := NormalizeClock(in.Time)
	if err != nil {
		return Reminder{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := Reminder{
		ID:        s.ids.Next(),
		Text:      in.Text,
		Time:      clock,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	s.reminders = append(s.reminders, r)
	return r, s.saveLocked()
}

func (s *Store) Delete(id string) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.reminders {
		if r.ID == id {
			s.reminders = append(s.reminders[:i], s.reminders[i+1:]...)
			return r, s.saveLocked()
		}
	}
	return Reminder{}, apperr.NotFound("reminder", id)
}

func (s *Store) Get(id string) (Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reminders {
		if r.ID == id {
			return r, true
		}
	}
	return Reminder{}, false
}

// List returns the reminders in insertion order.
func (s *Store) List() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(make([]Reminder, 0, len(s.reminders)), s.reminders...)
}

// Sorted returns the reminders ordered by time of day; reminders with the
// same time keep their insertion order.
func (s *Store) Sorted() []Reminder {
	out := s.List()
	sort.SliceStable(out, func(i, j int) bool {
		return sortKey(out[i].Time) < sortKey(out[j].Time)
	})
	return out
}

// sortKey orders unparseable times after every valid one.
func sortKey(clock string) string {
	if n, err := NormalizeClock(clock); err == nil {
		return n
	}
	return "~" + clock
}

func (s *Store) Replace(reminders []Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = append([]Reminder(nil), reminders...)
	for _, r := range reminders {
		s.ids.Observe(r.ID)
	}
	return s.saveLocked()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reminders)
}

func (s *Store) saveLocked() error {
	snapshot := s.reminders
	if snapshot == nil {
		snapshot = []Reminder{}
	}
	return storage.SaveJSON(s.kv, storage.KeyReminders, snapshot)
}
