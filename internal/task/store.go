// Package task holds the ordered task collection and its persistence.
package task

import (
	"strings"
	"sync"
	"time"

	"github.com/stellarlinkco/mytodo/internal/apperr"
	"github.com/stellarlinkco/mytodo/internal/ident"
	"github.com/stellarlinkco/mytodo/internal/storage"
	"github.com/stellarlinkco/mytodo/internal/validate"
)

// Input carries the editable fields of a task.
type Input struct {
	Text     string     `json:"text" validate:"required,max=500"`
	Priority Priority   `json:"priority" validate:"omitempty,oneof=low medium high"`
	Category string     `json:"category" validate:"max=100"`
	DueDate  *time.Time `json:"dueDate,omitempty"`
}

func (in Input) normalize() (Input, error) {
	in.Text = strings.TrimSpace(in.Text)
	in.Category = strings.TrimSpace(in.Category)
	in.Priority = Priority(strings.ToLower(strings.TrimSpace(string(in.Priority))))
	if err := validate.Struct(in); err != nil {
		return Input{}, err
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if in.DueDate != nil {
		due := in.DueDate.UTC().Truncate(time.Millisecond)
		in.DueDate = &due
	}
	return in, nil
}

type Option func(*Store)

// WithClock sets the time source used for timestamps and ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the ordered task collection. Every mutation writes the full
// collection to the KV under storage.KeyTasks before returning. A failed write
// is reported as a persistence error but the mutation stays applied.
type Store struct {
	mu    sync.Mutex
	kv    storage.KV
	tasks []Task
	now   func() time.Time
	ids   *ident.Generator
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

// Reload replaces the in-memory collection with the persisted one without
// writing anything back.
func (s *Store) Reload() error {
	var loaded []Task
	if _, err := storage.LoadJSON(s.kv, storage.KeyTasks, &loaded); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = loaded
	for _, t := range loaded {
		s.ids.Observe(t.ID)
	}
	return nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Store) Add(in Input) (Task, error) {
	in, err := in.normalize()
	if err != nil {
		return Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	t := Task{
		ID:          s.ids.Next(),
		Text:        in.Text,
		Priority:    in.Priority,
		Category:    in.Category,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		LastUpdated: now,
	}
	s.tasks = append(s.tasks, t)
	return t, s.saveLocked()
}

func (s *Store) Edit(id string, in Input) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Task{}, apperr.NotFound("task", id)
	}
	in, err := in.normalize()
	if err != nil {
		return Task{}, err
	}

	t := &s.tasks[i]
	t.Text = in.Text
	t.Priority = in.Priority
	t.Category = in.Category
	t.DueDate = in.DueDate
	s.touch(t)
	return *t, s.saveLocked()
}

func (s *Store) Toggle(id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Task{}, apperr.NotFound("task", id)
	}
	t := &s.tasks[i]
	t.Completed = !t.Completed
	s.touch(t)
	return *t, s.saveLocked()
}

func (s *Store) Delete(id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Task{}, apperr.NotFound("task", id)
	}
	removed := s.tasks[i]
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return removed, s.saveLocked()
}

func (s *Store) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return Task{}, false
	}
	return s.tasks[i], true
}

// List returns every task in insertion order.
func (s *Store) List() []Task {
	return s.Filter(FilterAll)
}

// Filter returns the tasks matching f in insertion order. The result is never
// nil.
func (s *Store) Filter(f Filter) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Progress{Total: len(s.tasks)}
	for _, t := range s.tasks {
		if t.Completed {
			p.Completed++
		}
	}
	return p
}

// Replace swaps in a whole collection, as an import does, and persists it.
func (s *Store) Replace(tasks []Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append([]Task(nil), tasks...)
	for _, t := range tasks {
		s.ids.Observe(t.ID)
	}
	return s.saveLocked()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Store) touch(t *Task) {
	now := s.timestamp()
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.LastUpdated = now
}

func (s *Store) indexLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) saveLocked() error {
	snapshot := s.tasks
	if snapshot == nil {
		snapshot = []Task{}
	}
	return storage.SaveJSON(s.kv, storage.KeyTasks, snapshot)
}
