package syncer

import "time"

// DefaultMonthsAhead is how many months beyond the current one a sync
// window covers by default.
const DefaultMonthsAhead = 3

// SyncWindow returns the half-open time range [start, end) a sync cycle
// fetches. The window starts at the first instant of the current month and
// ends at the first instant of the month monthsAhead+1 months later, so
// "3 months ahead" always means three whole calendar months beyond the
// current one regardless of the day the sync runs.
func SyncWindow(now time.Time, monthsAhead int) (time.Time, time.Time) {
	if monthsAhead < 0 {
		monthsAhead = DefaultMonthsAhead
	}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, monthsAhead+1, 0)
	return start, end
}
