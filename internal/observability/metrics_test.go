package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitMetricsRegistersFamilies(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := InitMetrics(reg)
	m.TransitionDone("update", "success")
	m.HookFailed("after", "contract")
	m.TaskDone("create", "done")
	m.ObserveHTTP(http.MethodGet, "/api/v1/tickets/:id", 200, 15*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, name := range []string{
		"aflo_transitions_total",
		"aflo_hook_failures_total",
		"aflo_tasks_total",
		"aflo_http_requests_total",
		"aflo_http_request_duration_seconds",
	} {
		if !names[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}

func TestRecorderCounters(t *testing.T) {
	m := InitMetrics(prometheus.NewRegistry())

	m.TransitionDone("update", "success")
	m.TransitionDone("update", "success")
	m.TransitionDone("update", "compensated")
	m.HookFailed("after", "contract")

	if got := testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("update", "success")); got != 2 {
		t.Errorf("success transitions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("update", "compensated")); got != 1 {
		t.Errorf("compensated transitions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.HookFailuresTotal.WithLabelValues("after", "contract")); got != 1 {
		t.Errorf("hook failures = %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := InitMetrics(prometheus.NewRegistry())
	m.HookFailed("before", "probe")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `aflo_hook_failures_total{broker="probe",timing="before"} 1`) {
		t.Errorf("exposition missing hook failure counter:\n%s", rec.Body.String())
	}
}
