package testfixtures

import (
	"testing"
	"time"
)

func TestClock_DefaultsToReferenceTime(t *testing.T) {
	t.Parallel()

	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected reference time, got %v", clock.Now())
	}
}

func TestClock_SetAndAdvance(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, time.June, 5, 12, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	if got := clock.Advance(90 * time.Minute); !got.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", got)
	}
	clock.Set(start)
	if !clock.Now().Equal(start) {
		t.Fatalf("set did not apply, got %v", clock.Now())
	}
}

func TestClock_NowFuncOnNilFallsBackToRealTime(t *testing.T) {
	t.Parallel()

	var clock *Clock
	before := time.Now()
	if got := clock.NowFunc()(); got.Before(before) {
		t.Fatalf("expected wall clock time, got %v", got)
	}
}
