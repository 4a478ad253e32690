package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stellarlinkco/mytodo/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_AlertCounters(t *testing.T) {
	c := NewCollector()
	var _ notify.Recorder = c

	c.AlertScheduled(notify.KindTaskDue)
	c.AlertScheduled(notify.KindTaskDue)
	c.AlertScheduled(notify.KindReminder)
	c.AlertFired(notify.KindReminder)
	c.AlertSuppressed(notify.KindTaskDue)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.AlertsScheduled.WithLabelValues("task-due")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AlertsScheduled.WithLabelValues("reminder")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AlertsFired.WithLabelValues("reminder")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AlertsSuppressed.WithLabelValues("task-due")))
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.AlertFired(notify.KindReminder)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.AlertsFired.WithLabelValues("reminder")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ObserveHTTP("GET", "/api/tasks", 200, 15*time.Millisecond)
	c.RegisterState(
		func() float64 { return 4 },
		func() float64 { return 1 },
		func() float64 { return 2 },
		func() float64 { return 0 },
	)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, _ := io.ReadAll(rec.Body)

	assert.Contains(t, string(body), `mytodo_http_requests_total{method="GET",route="/api/tasks",status="200"} 1`)
	assert.Contains(t, string(body), "mytodo_tasks 4")
	assert.Contains(t, string(body), "mytodo_tasks_completed 1")
	assert.Contains(t, string(body), "mytodo_food_reminders 2")
	assert.Contains(t, string(body), "mytodo_alerts_pending 0")
}
