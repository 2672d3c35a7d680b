package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Contact("stored")
	m.Contact("stored")
	m.Contact("invalid")
	if got := testutil.ToFloat64(m.ContactSubmissions.WithLabelValues("stored")); got != 2 {
		t.Errorf("stored = %v, want 2", got)
	}

	m.Mail("reply", nil)
	m.Mail("reply", errors.New("smtp down"))
	if got := testutil.ToFloat64(m.MailSent.WithLabelValues("reply", "failed")); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveRequest("GET", "/api/projects", 200, 5*time.Millisecond)

	if n := testutil.CollectAndCount(m.HTTPRequestDuration); n != 1 {
		t.Errorf("series = %d, want 1", n)
	}
}

func TestDoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	New(reg)
}
