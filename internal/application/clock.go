package application

import "time"

// Clock abstraction so time-dependent use-cases are testable
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock, UTC wall time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
