package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewClock(start)

	if updated := clock.Advance(90 * time.Minute); !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	clock.Set(start.Add(2 * time.Hour))
	if got := clock.NowFunc()(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(2*time.Hour), got)
	}
}

func TestClockSetWallClock(t *testing.T) {
	// 2024-01-15 23:30 UTC is already 2024-01-16 in Tokyo.
	clock := NewClock(time.Date(2024, time.January, 15, 23, 30, 0, 0, time.UTC))

	got := clock.SetWallClock(Tokyo, 9, 0)
	want := time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) || !clock.Now().Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
