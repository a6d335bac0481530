package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()

	if _, err := Register(reg); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if _, err := Register(reg); err != nil {
		t.Fatalf("second Register failed: %v", err)
	}
}

func TestRefetchCounter(t *testing.T) {
	before := testutil.ToFloat64(RefetchTotal.WithLabelValues("garments", "notification"))
	RefetchTotal.WithLabelValues("garments", "notification").Inc()
	after := testutil.ToFloat64(RefetchTotal.WithLabelValues("garments", "notification"))

	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, got %v", after-before)
	}
}

func TestResultLabel(t *testing.T) {
	if ResultLabel(errors.New("boom")) != "error" {
		t.Error("expected error label")
	}
	if ResultLabel(nil) != "ok" {
		t.Error("expected ok label")
	}
}
