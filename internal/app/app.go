// Package app is the application controller. It owns the task and reminder
// stores, the meal catalog and the current filter and preference, and asks
// the scheduler to re-evaluate after every mutation.
package app

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/stellarlinkco/mytodo/internal/apperr"
	"github.com/stellarlinkco/mytodo/internal/bus"
	"github.com/stellarlinkco/mytodo/internal/notify"
	"github.com/stellarlinkco/mytodo/internal/reminder"
	"github.com/stellarlinkco/mytodo/internal/suggest"
	"github.com/stellarlinkco/mytodo/internal/task"
	"go.uber.org/zap"
)

// MotivationThreshold is the number of completed tasks from which a
// motivational message is shown.
const MotivationThreshold = 3

var motivationalMessages = []string{
	"You're doing great! Keep up the good work!",
	"Fantastic progress! You're on a roll!",
	"Amazing job completing those tasks!",
	"Keep going! You're making excellent progress!",
	"Productivity champion! Well done!",
}

// Evaluator re-runs the alert rules; notify.Scheduler implements it.
type Evaluator interface {
	Evaluate(now time.Time) []notify.Alert
}

type Option func(*Controller)

func WithScheduler(e Evaluator) Option {
	return func(c *Controller) { c.sched = e }
}

func WithBus(b *bus.AlertBus) Option {
	return func(c *Controller) { c.bus = b }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithRand replaces the source used to pick motivational messages; intn
// must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(c *Controller) { c.intn = intn }
}

func WithPreference(p suggest.Preference) Option {
	return func(c *Controller) { c.preference = p }
}

type Controller struct {
	tasks     *task.Store
	reminders *reminder.Store
	catalog   *suggest.Catalog
	sched     Evaluator
	bus       *bus.AlertBus
	now       func() time.Time
	intn      func(n int) int
	logger    *zap.Logger

	mu         sync.RWMutex
	filter     task.Filter
	preference suggest.Preference
}

func New(tasks *task.Store, reminders *reminder.Store, catalog *suggest.Catalog, opts ...Option) *Controller {
	c := &Controller{
		tasks:      tasks,
		reminders:  reminders,
		catalog:    catalog,
		now:        time.Now,
		intn:       rand.Intn,
		logger:     zap.NewNop(),
		filter:     task.FilterAll,
		preference: suggest.All,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) evaluate() {
	if c.sched == nil {
		return
	}
	c.sched.Evaluate(c.now())
}

// mutated re-evaluates alerts after any mutation that reached the store,
// including one whose save failed.
func (c *Controller) mutated(err error) {
	if err == nil || errors.Is(err, apperr.ErrPersistence) {
		c.evaluate()
	}
}

func (c *Controller) AddTask(in task.Input) (task.Task, error) {
	t, err := c.tasks.Add(in)
	c.mutated(err)
	return t, err
}

func (c *Controller) EditTask(id string, in task.Input) (task.Task, error) {
	t, err := c.tasks.Edit(id, in)
	c.mutated(err)
	return t, err
}

func (c *Controller) ToggleTask(id string) (task.Task, error) {
	t, err := c.tasks.Toggle(id)
	c.mutated(err)
	return t, err
}

func (c *Controller) DeleteTask(id string) (task.Task, error) {
	t, err := c.tasks.Delete(id)
	c.mutated(err)
	return t, err
}

func (c *Controller) Task(id string) (task.Task, bool) {
	return c.tasks.Get(id)
}

func (c *Controller) AddReminder(text, clock string) (reminder.Reminder, error) {
	r, err := c.reminders.Add(text, clock)
	c.mutated(err)
	return r, err
}

func (c *Controller) DeleteReminder(id string) (reminder.Reminder, error) {
	r, err := c.reminders.Delete(id)
	c.mutated(err)
	return r, err
}

// SetFilter parses and stores the task list filter.
func (c *Controller) SetFilter(s string) error {
	f, err := task.ParseFilter(s)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
	return nil
}

func (c *Controller) Filter() task.Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter
}

// SetPreference parses and stores the dietary preference.
func (c *Controller) SetPreference(s string) error {
	p, err := suggest.ParsePreference(s)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.preference = p
	c.mu.Unlock()
	return nil
}

func (c *Controller) Preference() suggest.Preference {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.preference
}

// Tasks returns the tasks matching the current filter.
func (c *Controller) Tasks() []task.Task {
	return c.tasks.Filter(c.Filter())
}

// Reminders returns the reminders ordered by time of day.
func (c *Controller) Reminders() []reminder.Reminder {
	return c.reminders.Sorted()
}

func (c *Controller) Progress() task.Progress {
	return c.tasks.Progress()
}

// Motivation returns a random encouraging message once enough tasks are
// completed, and "" before that.
func (c *Controller) Motivation() string {
	if c.tasks.Progress().Completed < MotivationThreshold {
		return ""
	}
	return motivationalMessages[c.intn(len(motivationalMessages))]
}

type Suggestions struct {
	Bucket     suggest.Bucket     `json:"bucket"`
	Preference suggest.Preference `json:"preference"`
	Entries    []suggest.Entry    `json:"entries"`
}

// Suggestions returns the meals for the current time and preference.
func (c *Controller) Suggestions() (Suggestions, error) {
	pref := c.Preference()
	b, entries, err := c.catalog.Suggest(c.now(), pref)
	if err != nil {
		return Suggestions{}, err
	}
	return Suggestions{Bucket: b, Preference: pref, Entries: entries}, nil
}

// SuggestionsAt is Suggestions for an explicit "HH:MM" time and preference.
func (c *Controller) SuggestionsAt(clock string, pref suggest.Preference) (Suggestions, error) {
	b, entries, err := c.catalog.SuggestAt(clock, pref)
	if err != nil {
		return Suggestions{}, err
	}
	return Suggestions{Bucket: b, Preference: pref, Entries: entries}, nil
}

// OnAlert subscribes fn to fired alerts under name.
func (c *Controller) OnAlert(name string, fn bus.Handler) error {
	if c.bus == nil {
		return errors.New("alerts are not enabled")
	}
	c.bus.Subscribe(name, fn)
	return nil
}

// Reload re-reads both collections from storage, e.g. after another process
// wrote them, and re-evaluates alerts.
func (c *Controller) Reload() error {
	if err := c.tasks.Reload(); err != nil {
		return err
	}
	if err := c.reminders.Reload(); err != nil {
		return err
	}
	c.evaluate()
	return nil
}

// Evaluate runs the alert rules now and returns the newly scheduled alerts.
func (c *Controller) Evaluate() []notify.Alert {
	if c.sched == nil {
		return nil
	}
	return c.sched.Evaluate(c.now())
}
