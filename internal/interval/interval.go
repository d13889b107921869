// Package interval provides a reusable "has N seconds elapsed since last
// tick?" timer, the building block spec.md's Design Notes call for instead
// of ad-hoc time.Sleep bookkeeping scattered through each loop.
package interval

import "time"

// Timer tracks whether its interval has elapsed since the last tick.
// It is not goroutine-safe; each loop owns one.
type Timer struct {
	name     string
	interval time.Duration
	last     time.Time
	fired    bool
}

// New creates a Timer that fires immediately on its first Ready call
// (the "fast-forward" primitive spec.md's Design Notes describe, used so a
// verbose-logging cadence fires on the first pass through a loop).
func New(name string, interval time.Duration) *Timer {
	return &Timer{name: name, interval: interval}
}

// Ready reports whether the interval has elapsed, resetting the internal
// clock if so. The very first call always returns true.
func (t *Timer) Ready(now time.Time) bool {
	if !t.fired {
		t.fired = true
		t.last = now
		return true
	}
	if now.Sub(t.last) >= t.interval {
		t.last = now
		return true
	}
	return false
}

// Reset forces the next Ready call to report elapsed, regardless of the
// configured interval. Cancellation does not call Reset -- per spec.md's
// open questions, the verbose-logging cadence does not reset on
// cancellation, so callers should not invoke this from a cancellation path.
func (t *Timer) Reset() {
	t.fired = false
}

// Name returns the timer's label, useful for log lines.
func (t *Timer) Name() string {
	return t.name
}
