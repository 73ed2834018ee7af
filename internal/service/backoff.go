package service

import "time"

// backoffSchedule is the outer retry schedule, indexed by attempt count:
// immediate, 1 minute, 5 minutes, 15 minutes, 1 hour. Attempts beyond the
// table clamp to the last entry. Deliberately deterministic; jitter lives in
// the per-attempt provider retry, not here.
var backoffSchedule = []time.Duration{
	0,
	60 * time.Second,
	300 * time.Second,
	900 * time.Second,
	3600 * time.Second,
}

// backoffDelay returns the delay before the next run for a job that has just
// failed its Nth attempt.
func backoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(backoffSchedule) {
		attempt = len(backoffSchedule) - 1
	}
	return backoffSchedule[attempt]
}
