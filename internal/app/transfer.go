package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/stellarlinkco/mytodo/internal/apperr"
	"github.com/stellarlinkco/mytodo/internal/reminder"
	"github.com/stellarlinkco/mytodo/internal/storage"
	"github.com/stellarlinkco/mytodo/internal/task"
)

// Document is the export/import file layout.
type Document struct {
	Tasks         []task.Task         `json:"tasks"`
	FoodReminders []reminder.Reminder `json:"foodReminders"`
}

// ExportFileName is the suggested download name for an export made at now.
func ExportFileName(now time.Time) string {
	return "todo-list-export-" + now.Format(time.DateOnly) + ".json"
}

func (c *Controller) ExportFileName() string {
	return ExportFileName(c.now())
}

// Export writes both collections as an indented JSON document.
func (c *Controller) Export(w io.Writer) error {
	doc := Document{Tasks: c.tasks.List(), FoodReminders: c.reminders.List()}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ImportResult reports which collections an import replaced.
type ImportResult struct {
	Tasks             int  `json:"tasks"`
	FoodReminders     int  `json:"foodReminders"`
	TasksReplaced     bool `json:"tasksReplaced"`
	RemindersReplaced bool `json:"remindersReplaced"`
}

// Import replaces each collection the document carries as an array. A
// member that is absent or null leaves its collection alone. Any other
// problem fails the whole import before anything changes.
func (c *Controller) Import(r io.Reader) (ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ImportResult{}, apperr.Import("read document: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return ImportResult{}, apperr.Import("document is not a JSON object: %v", err)
	}

	var res ImportResult
	var tasks []task.Task
	if msg, ok := present(raw, storage.KeyTasks); ok {
		if !isArray(msg) {
			return ImportResult{}, apperr.Import("%s must be an array", storage.KeyTasks)
		}
		if err := json.Unmarshal(msg, &tasks); err != nil {
			return ImportResult{}, apperr.Import("%s: %v", storage.KeyTasks, err)
		}
		seen := make(map[string]bool, len(tasks))
		for i, t := range tasks {
			if t.ID == "" || strings.TrimSpace(t.Text) == "" {
				return ImportResult{}, apperr.Import("%s[%d]: id and text are required", storage.KeyTasks, i)
			}
			if seen[t.ID] {
				return ImportResult{}, apperr.Import("%s[%d]: duplicate id %q", storage.KeyTasks, i, t.ID)
			}
			seen[t.ID] = true
			p, err := task.ParsePriority(string(t.Priority))
			if err != nil {
				return ImportResult{}, apperr.Import("%s[%d]: bad priority %q", storage.KeyTasks, i, t.Priority)
			}
			tasks[i].Priority = p
		}
		if tasks == nil {
			tasks = []task.Task{}
		}
		res.TasksReplaced = true
		res.Tasks = len(tasks)
	}

	var reminders []reminder.Reminder
	if msg, ok := present(raw, storage.KeyReminders); ok {
		if !isArray(msg) {
			return ImportResult{}, apperr.Import("%s must be an array", storage.KeyReminders)
		}
		if err := json.Unmarshal(msg, &reminders); err != nil {
			return ImportResult{}, apperr.Import("%s: %v", storage.KeyReminders, err)
		}
		seen := make(map[string]bool, len(reminders))
		for i, rem := range reminders {
			if rem.ID == "" || strings.TrimSpace(rem.Text) == "" {
				return ImportResult{}, apperr.Import("%s[%d]: id and text are required", storage.KeyReminders, i)
			}
			if seen[rem.ID] {
				return ImportResult{}, apperr.Import("%s[%d]: duplicate id %q", storage.KeyReminders, i, rem.ID)
			}
			seen[rem.ID] = true
			clock, err := reminder.NormalizeClock(rem.Time)
			if err != nil {
				return ImportResult{}, apperr.Import("%s[%d]: bad time %q", storage.KeyReminders, i, rem.Time)
			}
			reminders[i].Time = clock
		}
		if reminders == nil {
			reminders = []reminder.Reminder{}
		}
		res.RemindersReplaced = true
		res.FoodReminders = len(reminders)
	}

	if res.TasksReplaced {
		if err := c.tasks.Replace(tasks); err != nil {
			c.evaluate()
			return res, err
		}
	}
	if res.RemindersReplaced {
		if err := c.reminders.Replace(reminders); err != nil {
			c.evaluate()
			return res, err
		}
	}
	c.evaluate()
	return res, nil
}

func present(raw map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	msg, ok := raw[key]
	if !ok || bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return nil, false
	}
	return msg, true
}

func isArray(msg json.RawMessage) bool {
	trimmed := bytes.TrimSpace(msg)
	return len(trimmed) > 0 && trimmed[0] == '['
}
