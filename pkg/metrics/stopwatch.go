package metrics

import "time"

// Stopwatch captures a monotonic start instant at construction and
// measures elapsed wall time against it. The start instant is never
// reset; Elapsed may be read any number of times.
type Stopwatch struct {
	start time.Time
}

// NewStopwatch creates a Stopwatch and starts it
func NewStopwatch() Stopwatch {
	return Stopwatch{start: time.Now()}
}

// Elapsed returns the time since the stopwatch was started. Go's
// time.Time carries a monotonic clock reading, so the result is immune
// to wall-clock adjustments.
func (s Stopwatch) Elapsed() time.Duration {
	return time.Since(s.start)
}
