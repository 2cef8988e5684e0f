package finalizer

import "time"

// ElapsedDays counts the whole calendar days between past and now. It steps
// one day at a time from past, keeping past's wall-clock time in its location,
// and counts every step that does not pass now. The count rounds down: a
// partial last day is not counted, so 6 days 23 hours is 6, not 7.
func ElapsedDays(past, now time.Time) int {
	days := 0
	for d := past.AddDate(0, 0, 1); !d.After(now); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}
