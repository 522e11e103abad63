package utils

import "time"

// Clock supplies the current time. Every expiry and window comparison of the
// reset flow reads it instead of the database clock, so tests can move time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock, reported in UTC.
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
