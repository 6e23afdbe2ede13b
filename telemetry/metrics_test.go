package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init() // second call must not re-register (panic)
	if MatchesRecorded == nil || DuplicatesSkipped == nil {
		t.Fatal("expected counters to be registered")
	}
}

func TestTimeFunc(t *testing.T) {
	Init()
	d := TimeFunc(FinalizeDuration, func() { time.Sleep(5 * time.Millisecond) })
	if d < 5*time.Millisecond {
		t.Errorf("expected at least 5ms, got %v", d)
	}
	// nil observer must not panic
	TimeFunc(nil, func() {})
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("expected empty corr, got %q", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("expected abc-123, got %q", got)
	}
	if l := LoggerWithCorr(ctx); l == nil {
		t.Fatal("expected logger")
	}
}
