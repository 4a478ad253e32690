package app

import (
	"github.com/stellarlinkco/mytodo/internal/reminder"
	"github.com/stellarlinkco/mytodo/internal/suggest"
	"github.com/stellarlinkco/mytodo/internal/task"
)

// View is everything the presentation layer renders, taken as one snapshot.
type View struct {
	Filter      task.Filter        `json:"filter"`
	Preference  suggest.Preference `json:"preference"`
	Tasks       []task.Task        `json:"tasks"`
	Progress    ProgressView       `json:"progress"`
	Motivation  string             `json:"motivation,omitempty"`
	Reminders   []ReminderView     `json:"reminders"`
	Suggestions SuggestionsView    `json:"suggestions"`
}

type ProgressView struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Ratio     float64 `json:"ratio"`
	Percent   int     `json:"percent"`
}

type ReminderView struct {
	reminder.Reminder
	Display string `json:"display"`
}

type EntryView struct {
	suggest.Entry
	DietLabel string `json:"dietLabel"`
}

type SuggestionsView struct {
	Bucket     suggest.Bucket     `json:"bucket"`
	Preference suggest.Preference `json:"preference"`
	Entries    []EntryView        `json:"entries"`
}

func (c *Controller) View() (View, error) {
	s, err := c.Suggestions()
	if err != nil {
		return View{}, err
	}
	p := c.Progress()

	v := View{
		Filter:     c.Filter(),
		Preference: s.Preference,
		Tasks:      c.Tasks(),
		Progress: ProgressView{
			Completed: p.Completed,
			Total:     p.Total,
			Ratio:     p.Ratio(),
			Percent:   p.Percent(),
		},
		Motivation: c.Motivation(),
		Reminders:  []ReminderView{},
		Suggestions: SuggestionsView{
			Bucket:     s.Bucket,
			Preference: s.Preference,
			Entries:    make([]EntryView, 0, len(s.Entries)),
		},
	}
	for _, r := range c.Reminders() {
		v.Reminders = append(v.Reminders, ReminderView{Reminder: r, Display: reminder.FormatClock(r.Time)})
	}
	for _, e := range s.Entries {
		v.Suggestions.Entries = append(v.Suggestions.Entries, EntryView{Entry: e, DietLabel: e.DietType.Label()})
	}
	return v, nil
}
