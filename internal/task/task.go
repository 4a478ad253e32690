package task

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stellarlinkco/mytodo/internal/apperr"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	case "":
		return PriorityMedium, nil
	default:
		return "", apperr.Validation("priority must be one of: low medium high")
	}
}

const (
	CategoryWork     = "Work"
	CategoryPersonal = "Personal"
	CategoryHealth   = "Health"
	CategoryCustom   = "Custom"
)

// Categories are the predefined category choices.
var Categories = []string{CategoryWork, CategoryPersonal, CategoryHealth}

// ResolveCategory returns the effective category for a form submission: the
// selected category, or for "Custom" the custom label (or "Custom" itself
// when the label is blank).
func ResolveCategory(selected, custom string) string {
	selected = strings.TrimSpace(selected)
	if selected != CategoryCustom {
		return selected
	}
	if label := strings.TrimSpace(custom); label != "" {
		return label
	}
	return CategoryCustom
}

// IsPredefined reports whether category is one of Categories.
func IsPredefined(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

type Task struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	Category    string     `json:"category"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

// UnmarshalJSON accepts "" and null for a missing due date, which is how
// documents written by the browser app encode it.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		*plain
		DueDate *string `json:"dueDate"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.DueDate = nil
	if aux.DueDate != nil && *aux.DueDate != "" {
		due, err := time.Parse(time.RFC3339Nano, *aux.DueDate)
		if err != nil {
			return fmt.Errorf("task %s: dueDate: %w", t.ID, err)
		}
		t.DueDate = &due
	}
	return nil
}

// DueWithin reports whether an incomplete task is due in (0, window] from now.
func (t Task) DueWithin(now time.Time, window time.Duration) bool {
	if t.Completed || t.DueDate == nil {
		return false
	}
	delta := t.DueDate.Sub(now)
	return delta > 0 && delta <= window
}

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterActive, FilterCompleted:
		return f, nil
	default:
		return "", apperr.Validation("filter must be one of: all active completed")
	}
}

func (f Filter) Match(t Task) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// Progress counts completed tasks. The ratio is kept exact; Percent rounds
// for display only.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

func (p Progress) Ratio() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total)
}

func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Completed*200 + p.Total) / (p.Total * 2)
}
