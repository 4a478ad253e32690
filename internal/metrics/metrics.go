// Package metrics exposes Prometheus metrics for the scheduler, the stores
// and the HTTP API on a registry of its own.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stellarlinkco/mytodo/internal/notify"
)

const namespace = "mytodo"

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	AlertsScheduled  *prometheus.CounterVec
	AlertsFired      *prometheus.CounterVec
	AlertsSuppressed *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	alertsScheduled := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_scheduled_total",
			Help:      "Total number of alerts queued by the scheduler",
		},
		[]string{"kind"},
	)

	alertsFired := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fired_total",
			Help:      "Total number of alerts delivered",
		},
		[]string{"kind"},
	)

	alertsSuppressed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_suppressed_total",
			Help:      "Total number of alerts dropped at fire time",
		},
		[]string{"kind"},
	)

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(
		alertsScheduled,
		alertsFired,
		alertsSuppressed,
		httpRequests,
		httpDuration,
	)

	return &Collector{
		registry:         registry,
		AlertsScheduled:  alertsScheduled,
		AlertsFired:      alertsFired,
		AlertsSuppressed: alertsSuppressed,
		HTTPRequests:     httpRequests,
		HTTPDuration:     httpDuration,
	}
}

func (c *Collector) AlertScheduled(kind notify.Kind) {
	c.AlertsScheduled.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) AlertFired(kind notify.Kind) {
	c.AlertsFired.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) AlertSuppressed(kind notify.Kind) {
	c.AlertsSuppressed.WithLabelValues(string(kind)).Inc()
}

// ObserveHTTP records one finished request. route is the matched pattern,
// not the raw path.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// StateFunc reports a current value for a gauge.
type StateFunc func() float64

// RegisterState adds gauges read on every scrape.
func (c *Collector) RegisterState(tasks, completed, reminders, pending StateFunc) {
	gauge := func(name, help string, fn StateFunc) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, fn)
	}
	c.registry.MustRegister(
		gauge("tasks", "Number of tasks", tasks),
		gauge("tasks_completed", "Number of completed tasks", completed),
		gauge("food_reminders", "Number of food reminders", reminders),
		gauge("alerts_pending", "Number of alerts waiting to fire", pending),
	)
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
