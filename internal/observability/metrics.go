// Package observability exposes engine and HTTP metrics to Prometheus.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics holds the Prometheus instruments of the service
type Metrics struct {
	TransitionsTotal    *prometheus.CounterVec
	HookFailuresTotal   *prometheus.CounterVec
	TasksTotal          *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// InitMetrics creates and registers the instruments on reg
func InitMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aflo_transitions_total",
			Help: "Ticket writes by operation and result.",
		}, []string{"operation", "result"}),
		HookFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aflo_hook_failures_total",
			Help: "Failed broker hooks by timing and broker class.",
		}, []string{"timing", "broker"}),
		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aflo_tasks_total",
			Help: "Executed tasks by operation and outcome.",
		}, []string{"operation", "outcome"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aflo_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aflo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.TransitionsTotal,
		m.HookFailuresTotal,
		m.TasksTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TransitionDone counts one ticket write
func (m *Metrics) TransitionDone(operation, result string) {
	m.TransitionsTotal.WithLabelValues(operation, result).Inc()
}

// HookFailed counts one failed hook
func (m *Metrics) HookFailed(timing, brokerClass string) {
	m.HookFailuresTotal.WithLabelValues(timing, brokerClass).Inc()
}

// TaskDone counts one executed task
func (m *Metrics) TaskDone(operation, outcome string) {
	m.TasksTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
