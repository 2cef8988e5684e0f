package finalizer

import (
	"testing"
	"time"
)

func TestElapsedDays(t *testing.T) {
	base := time.Date(2025, time.June, 20, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		past time.Time
		want int
	}{
		{"same instant", base, 0},
		{"future", base.Add(time.Hour), 0},
		{"one hour", base.Add(-time.Hour), 0},
		{"exactly one day", base.AddDate(0, 0, -1), 1},
		{"five days", base.AddDate(0, 0, -5), 5},
		{"six days 23 hours", base.Add(-(6*24 + 23) * time.Hour), 6},
		{"exactly seven days", base.AddDate(0, 0, -7), 7},
		{"seven days and a minute", base.AddDate(0, 0, -7).Add(-time.Minute), 7},
		{"across month end", time.Date(2025, time.May, 28, 12, 0, 0, 0, time.UTC), 23},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ElapsedDays(tc.past, base); got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}

func TestElapsedDaysKeepsWallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2025-03-09 is the spring-forward day in New York: the calendar week is
	// 7 days of wall clock but only 167 hours.
	past := time.Date(2025, time.March, 5, 12, 0, 0, 0, ny)
	now := time.Date(2025, time.March, 12, 12, 0, 0, 0, ny)
	if now.Sub(past) != 167*time.Hour {
		t.Fatalf("fixture assumption broken: %v", now.Sub(past))
	}
	if got := ElapsedDays(past, now); got != 7 {
		t.Fatalf("got %d want 7", got)
	}
}
