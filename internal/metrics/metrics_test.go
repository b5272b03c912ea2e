package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_RecordDoseRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordDoseRecorded(false)
	c.RecordDoseRecorded(true)
	c.RecordDoseRecorded(false)

	if got := testutil.ToFloat64(c.dosesRecorded); got != 3 {
		t.Errorf("doses_recorded_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.dosesSkipped); got != 1 {
		t.Errorf("doses_skipped_total = %v, want 1", got)
	}
}

func TestCollector_RecordDoseDeleted(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordDoseDeleted()
	c.RecordDoseDeleted()

	if got := testutil.ToFloat64(c.dosesDeleted); got != 2 {
		t.Errorf("doses_deleted_total = %v, want 2", got)
	}
}

func TestCollector_RecordReminderSent(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordReminderSent("dose")
	c.RecordReminderSent("dose")
	c.RecordReminderSent("appointment")

	if got := testutil.ToFloat64(c.remindersSent.WithLabelValues("dose")); got != 2 {
		t.Errorf(`reminders_sent_total{kind="dose"} = %v, want 2`, got)
	}
	if got := testutil.ToFloat64(c.remindersSent.WithLabelValues("appointment")); got != 1 {
		t.Errorf(`reminders_sent_total{kind="appointment"} = %v, want 1`, got)
	}
}

func TestCollector_RecordHTTPStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("200")); got != 2 {
		t.Errorf(`http_status_total{status_code="200"} = %v, want 2`, got)
	}
	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("404")); got != 1 {
		t.Errorf(`http_status_total{status_code="404"} = %v, want 1`, got)
	}
}

func TestCollector_RecordProjectionLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProjectionLatency("next_doses", 50*time.Millisecond)
	c.RecordProjectionLatency("adherence_stats", 10*time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "eyedropit_projection_latency_seconds")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("projection_latency series = %d, want 2", count)
	}
}

func TestSetupMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordDoseRecorded(false)

	handler := SetupMetricsRoute(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "eyedropit_doses_recorded_total 1") {
		t.Errorf("メトリクス出力に doses_recorded_total が含まれない:\n%s", w.Body.String())
	}
}
