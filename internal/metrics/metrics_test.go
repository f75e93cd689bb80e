package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveVerification(t *testing.T) {
	m := New()

	m.ObserveVerification("billing", "valid", time.Millisecond)
	m.ObserveVerification("billing", "valid", time.Millisecond)
	m.ObserveVerification("billing", "invalid_timestamp", time.Millisecond)

	if got := testutil.ToFloat64(m.VerificationsTotal.WithLabelValues("billing", "valid")); got != 2 {
		t.Errorf("valid = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.VerificationsTotal.WithLabelValues("billing", "invalid_timestamp")); got != 1 {
		t.Errorf("invalid_timestamp = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.VerificationDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestObserveReplayAndEnqueued(t *testing.T) {
	m := New()
	m.ObserveReplay("crm")
	m.ObserveEnqueued("crm")
	m.ObserveEnqueued("crm")

	if got := testutil.ToFloat64(m.ReplaysTotal.WithLabelValues("crm")); got != 1 {
		t.Errorf("replays = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DeliveriesEnqueued.WithLabelValues("crm")); got != 2 {
		t.Errorf("enqueued = %v, want 2", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveVerification("s", "valid", time.Second)
	m.ObserveReplay("s")
	m.ObserveEnqueued("s")
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveVerification("billing", "invalid_signature", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `hookgate_verifications_total{result="invalid_signature",source="billing"} 1`) {
		t.Errorf("metrics output missing verification counter:\n%s", body)
	}
}
