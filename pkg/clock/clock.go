// Package clock provides time abstractions so polling and retry loops can
// run against simulated time in tests.
//
// In production, use Real() which wraps the standard time package.
// In tests, use NewFakeClock() for deterministic time control.
package clock

import "time"

// Clock provides the time operations used by polling and retry loops.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration

	// Sleep pauses the current goroutine for at least duration d.
	Sleep(d time.Duration)

	// After waits for the duration to elapse and then sends the current time.
	After(d time.Duration) <-chan time.Time
}
