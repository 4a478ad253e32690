// Package notify schedules due-soon task alerts and daily food reminder
// alerts, and delivers them through an Emitter when they come due.
package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	rcron "github.com/robfig/cron/v3"
	"github.com/stellarlinkco/mytodo/internal/config"
	"github.com/stellarlinkco/mytodo/internal/reminder"
	"github.com/stellarlinkco/mytodo/internal/task"
	"go.uber.org/zap"
)

type Kind string

const (
	KindTaskDue  Kind = "task-due"
	KindReminder Kind = "reminder"
)

type Alert struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	EntityID string    `json:"entityId"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	FireAt   time.Time `json:"fireAt"`

	key string
	seq uint64
}

// TaskSource is the read side of the task store.
type TaskSource interface {
	List() []task.Task
	Get(id string) (task.Task, bool)
}

// ReminderSource is the read side of the reminder store.
type ReminderSource interface {
	List() []reminder.Reminder
}

// Emitter receives alerts as they fire. Publish must not block.
type Emitter interface {
	Publish(Alert)
}

// Recorder observes the scheduler; metrics.Collector implements it.
type Recorder interface {
	AlertScheduled(kind Kind)
	AlertFired(kind Kind)
	AlertSuppressed(kind Kind)
}

type nopRecorder struct{}

func (nopRecorder) AlertScheduled(Kind)  {}
func (nopRecorder) AlertFired(Kind)      {}
func (nopRecorder) AlertSuppressed(Kind) {}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithDurations(d config.Durations) Option {
	return func(s *Scheduler) { s.durations = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// Scheduler keeps pending alerts in a heap drained by one loop goroutine.
// Every alert carries a dedupe key; a key that is pending or has fired is
// not scheduled again until it expires.
type Scheduler struct {
	tasks     TaskSource
	reminders ReminderSource
	emit      Emitter
	recorder  Recorder
	logger    *zap.Logger
	now       func() time.Time
	durations config.Durations

	mu     sync.Mutex
	queue  alertQueue
	seen   map[string]time.Time // dedupe key -> expiry
	seq    uint64
	cron   *rcron.Cron
	wake   chan struct{}
	cancel context.CancelFunc
	stopCh chan struct{}
	done   chan struct{}
}

func New(tasks TaskSource, reminders ReminderSource, emit Emitter, opts ...Option) *Scheduler {
	s := &Scheduler{
		tasks:     tasks,
		reminders: reminders,
		emit:      emit,
		recorder:  nopRecorder{},
		logger:    zap.NewNop(),
		now:       time.Now,
		durations: config.Durations{
			PollInterval:   time.Minute,
			DueSoonWindow:  30 * time.Minute,
			TaskAlertDelay: time.Second,
		},
		seen: make(map[string]time.Time),
		wake: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate applies both scheduling rules at now and returns the alerts it
// newly queued.
func (s *Scheduler) Evaluate(now time.Time) []Alert {
	tasks := s.tasks.List()
	reminders := s.reminders.List()

	s.mu.Lock()
	s.pruneLocked(now)

	var scheduled []Alert
	for _, t := range tasks {
		if !t.DueWithin(now, s.durations.DueSoonWindow) {
			continue
		}
		key := "task:" + t.ID + "@" + t.DueDate.UTC().Format(time.RFC3339Nano)
		a := Alert{
			Kind:     KindTaskDue,
			EntityID: t.ID,
			Title:    "Task Due Soon: " + t.Text,
			Body:     fmt.Sprintf("This task is due in less than %s!", describe(s.durations.DueSoonWindow)),
			FireAt:   now.Add(s.durations.TaskAlertDelay),
		}
		if s.scheduleLocked(a, key, *t.DueDate) {
			scheduled = append(scheduled, a)
		}
	}

	day := now.Format(time.DateOnly)
	y, m, d := now.Date()
	endOfDay := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	for _, r := range reminders {
		at, err := r.On(now)
		if err != nil {
			s.logger.Warn("skipping reminder with bad time", zap.String("id", r.ID), zap.String("time", r.Time))
			continue
		}
		if at.Before(now) {
			continue
		}
		a := Alert{
			Kind:     KindReminder,
			EntityID: r.ID,
			Title:    "Food Reminder: " + r.Text,
			Body:     "It's time to eat!",
			FireAt:   at,
		}
		if s.scheduleLocked(a, "reminder:"+r.ID+"@"+day, endOfDay) {
			scheduled = append(scheduled, a)
		}
	}
	s.mu.Unlock()

	for i := range scheduled {
		s.recorder.AlertScheduled(scheduled[i].Kind)
		s.logger.Debug("alert scheduled",
			zap.String("kind", string(scheduled[i].Kind)),
			zap.String("entity", scheduled[i].EntityID),
			zap.Time("fireAt", scheduled[i].FireAt))
	}
	if len(scheduled) > 0 {
		s.signal()
	}
	return scheduled
}

func (s *Scheduler) scheduleLocked(a Alert, key string, expires time.Time) bool {
	if _, dup := s.seen[key]; dup {
		return false
	}
	s.seq++
	a.ID = uuid.NewString()
	a.key = key
	a.seq = s.seq
	s.seen[key] = expires
	s.queue.push(&a)
	return true
}

func (s *Scheduler) pruneLocked(now time.Time) {
	for key, expires := range s.seen {
		if !expires.After(now) {
			delete(s.seen, key)
		}
	}
}

// Fire delivers every alert due at or before now. Task alerts are dropped
// when the task is gone or already completed.
func (s *Scheduler) Fire(now time.Time) []Alert {
	s.mu.Lock()
	var due []Alert
	for {
		next, ok := s.queue.peek()
		if !ok || next.FireAt.After(now) {
			break
		}
		due = append(due, *s.queue.pop())
	}
	s.mu.Unlock()

	fired := due[:0]
	for _, a := range due {
		if a.Kind == KindTaskDue {
			t, ok := s.tasks.Get(a.EntityID)
			if !ok || t.Completed {
				s.recorder.AlertSuppressed(a.Kind)
				s.logger.Debug("alert suppressed", zap.String("entity", a.EntityID))
				continue
			}
		}
		s.emit.Publish(a)
		s.recorder.AlertFired(a.Kind)
		s.logger.Info("alert fired", zap.String("kind", string(a.Kind)), zap.String("title", a.Title))
		fired = append(fired, a)
	}
	return fired
}

// Pending returns the queued alerts in firing order.
func (s *Scheduler) Pending() []Alert {
	s.mu.Lock()
	out := make([]Alert, len(s.queue))
	for i, a := range s.queue {
		out[i] = *a
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].seq < out[j].seq
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start evaluates once, registers the periodic re-evaluation and starts the
// delivery loop. Cancelling ctx stops the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	stopCh := make(chan struct{})
	done := make(chan struct{})

	c := rcron.New()
	spec := "@every " + s.durations.PollInterval.String()
	if _, err := c.AddFunc(spec, func() { s.Evaluate(s.now()) }); err != nil {
		cancel()
		return fmt.Errorf("register poll %q: %w", spec, err)
	}

	s.mu.Lock()
	s.cron = c
	s.cancel = cancel
	s.stopCh = stopCh
	s.done = done
	s.mu.Unlock()

	s.Evaluate(s.now())
	c.Start()
	s.logger.Info("scheduler started", zap.Duration("poll", s.durations.PollInterval))

	go s.loop(runCtx, done)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stopCh:
		}
	}()
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		next, ok := s.queue.peek()
		var fireAt time.Time
		if ok {
			fireAt = next.FireAt
		}
		s.mu.Unlock()

		wait := time.Hour
		if ok {
			wait = max(fireAt.Sub(s.now()), 0)
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
			s.Fire(s.now())
		}
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	stopCh := s.stopCh
	done := s.done
	c := s.cron
	s.cancel = nil
	s.stopCh = nil
	s.done = nil
	s.cron = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	close(stopCh)
	<-done

	if c != nil {
		stopCtx := c.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
			s.logger.Warn("stop timeout waiting for running evaluation")
		}
	}
	s.logger.Info("scheduler stopped")
}

func describe(d time.Duration) string {
	if d%time.Hour == 0 && d >= time.Hour {
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	}
	if m := int(d / time.Minute); m > 1 {
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
