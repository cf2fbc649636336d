package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersDistinctGauges(t *testing.T) {
	m := New()
	m.JobsActive.Set(3)
	m.JobsComplete.Set(1)
	m.JobsDefective.Set(1)
	m.TelemetryRows.Set(42)
	m.CurrentTick.Set(7)

	if got := testutil.ToFloat64(m.JobsActive); got != 3 {
		t.Errorf("JobsActive = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.CurrentTick); got != 7 {
		t.Errorf("CurrentTick = %v, want 7", got)
	}
}

func TestServeWithBlankAddrIsDisabled(t *testing.T) {
	m := New()
	srv := Serve("", m.Registry())
	if srv != nil {
		t.Error("Serve(\"\") returned a non-nil server, want nil (disabled)")
	}
	if err := Shutdown(context.Background(), srv); err != nil {
		t.Errorf("Shutdown(nil server) = %v, want nil", err)
	}
}

func TestServeOnLoopbackPort(t *testing.T) {
	m := New()
	srv := Serve("127.0.0.1:0", m.Registry())
	if srv == nil {
		t.Fatal("Serve with a real addr returned nil")
	}
	if err := Shutdown(context.Background(), srv); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
