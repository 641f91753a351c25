package retry

import "time"

// DefaultSchedule is the ascending backoff schedule shared by every
// background task. The attempt index selects the delay; attempts past the
// end of the schedule reuse the last entry.
var DefaultSchedule = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	300 * time.Second,
	900 * time.Second,
	3600 * time.Second,
}

// MaxRetries is the retry budget implied by the default schedule
var MaxRetries = len(DefaultSchedule)

// Delay returns the backoff delay for the given retry attempt index
func Delay(attempt int) time.Duration {
	return DelayFrom(DefaultSchedule, attempt)
}

// DelayFrom returns the delay for attempt from a custom schedule,
// clamping negative indexes to the first entry and overflowing indexes
// to the last
func DelayFrom(schedule []time.Duration, attempt int) time.Duration {
	if len(schedule) == 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(schedule) {
		attempt = len(schedule) - 1
	}
	return schedule[attempt]
}
