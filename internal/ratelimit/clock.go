package ratelimit

import "time"

// Clock abstracts time for the limiter so blocking behavior is testable
// without real timers.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// RealClock returns a Clock backed by the system clock.
func RealClock() Clock {
	return realClock{}
}
