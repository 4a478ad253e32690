package api

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stellarlinkco/mytodo/internal/app"
	"github.com/stellarlinkco/mytodo/internal/apperr"
	"github.com/stellarlinkco/mytodo/internal/notify"
	"github.com/stellarlinkco/mytodo/internal/reminder"
	"github.com/stellarlinkco/mytodo/internal/suggest"
	"github.com/stellarlinkco/mytodo/internal/task"
)

// TaskRequest is the body of POST /api/tasks and PUT /api/tasks/{id}.
type TaskRequest struct {
	Text           string  `json:"text"`
	Priority       string  `json:"priority"`
	Category       string  `json:"category"`
	CustomCategory string  `json:"customCategory,omitempty"`
	DueDate        *string `json:"dueDate"`
}

// input resolves the custom category and parses the due date, which may be
// RFC 3339 or a datetime-local value in the server's zone.
func (req TaskRequest) input() (task.Input, error) {
	in := task.Input{
		Text:     req.Text,
		Priority: task.Priority(strings.ToLower(strings.TrimSpace(req.Priority))),
		Category: task.ResolveCategory(req.Category, req.CustomCategory),
	}
	if req.DueDate == nil || strings.TrimSpace(*req.DueDate) == "" {
		return in, nil
	}
	raw := strings.TrimSpace(*req.DueDate)
	due, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		due, err = time.ParseInLocation("2006-01-02T15:04", raw, time.Local)
	}
	if err != nil {
		return task.Input{}, apperr.Validation("dueDate %q must be an RFC 3339 timestamp", raw)
	}
	in.DueDate = &due
	return in, nil
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	if f := r.URL.Query().Get("filter"); f != "" {
		if err := s.ctrl.SetFilter(f); err != nil {
			s.respondError(w, err)
			return
		}
	}
	s.respondJSON(w, http.StatusOK, s.ctrl.Tasks())
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.respondError(w, err)
		return
	}
	t, err := s.ctrl.AddTask(in)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, t)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := s.ctrl.Task(id)
	if !ok {
		s.respondError(w, apperr.NotFound("task", id))
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.respondError(w, err)
		return
	}
	t, err := s.ctrl.EditTask(chi.URLParam(r, "id"), in)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.ctrl.DeleteTask(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

func (s *Server) toggleTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.ctrl.ToggleTask(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

type progressResponse struct {
	app.ProgressView
	Motivation string `json:"motivation,omitempty"`
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	p := s.ctrl.Progress()
	s.respondJSON(w, http.StatusOK, progressResponse{
		ProgressView: app.ProgressView{
			Completed: p.Completed,
			Total:     p.Total,
			Ratio:     p.Ratio(),
			Percent:   p.Percent(),
		},
		Motivation: s.ctrl.Motivation(),
	})
}

// ReminderRequest is the body of POST /api/reminders.
type ReminderRequest struct {
	Text string `json:"text"`
	Time string `json:"time"`
}

func (s *Server) listReminders(w http.ResponseWriter, r *http.Request) {
	reminders := s.ctrl.Reminders()
	if reminders == nil {
		reminders = []reminder.Reminder{}
	}
	s.respondJSON(w, http.StatusOK, reminders)
}

func (s *Server) createReminder(w http.ResponseWriter, r *http.Request) {
	var req ReminderRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, err)
		return
	}
	rem, err := s.ctrl.AddReminder(req.Text, req.Time)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, rem)
}

func (s *Server) deleteReminder(w http.ResponseWriter, r *http.Request) {
	rem, err := s.ctrl.DeleteReminder(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rem)
}

// suggestions answers for the current time, or for ?at=HH:MM. A preference
// without at also becomes the current preference.
func (s *Server) suggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	at := q.Get("at")
	pref := q.Get("preference")

	var (
		out app.Suggestions
		err error
	)
	if at != "" {
		p := s.ctrl.Preference()
		if pref != "" {
			if p, err = suggest.ParsePreference(pref); err != nil {
				s.respondError(w, err)
				return
			}
		}
		out, err = s.ctrl.SuggestionsAt(at, p)
	} else {
		if pref != "" {
			if err := s.ctrl.SetPreference(pref); err != nil {
				s.respondError(w, err)
				return
			}
		}
		out, err = s.ctrl.Suggestions()
	}
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if f := q.Get("filter"); f != "" {
		if err := s.ctrl.SetFilter(f); err != nil {
			s.respondError(w, err)
			return
		}
	}
	if p := q.Get("preference"); p != "" {
		if err := s.ctrl.SetPreference(p); err != nil {
			s.respondError(w, err)
			return
		}
	}
	v, err := s.ctrl.View()
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, v)
}

func (s *Server) pendingAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := []notify.Alert{}
	if s.pending != nil {
		alerts = append(alerts, s.pending.Pending()...)
	}
	s.respondJSON(w, http.StatusOK, alerts)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.ctrl.Export(&buf); err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+s.ctrl.ExportFileName()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) importDocument(w http.ResponseWriter, r *http.Request) {
	res, err := s.ctrl.Import(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}
