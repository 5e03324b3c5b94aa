// Package system provides the wall clock used for manifests and summary records.
package system

import "time"

// Clock implements summarizer.Clock with UTC wall time.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Since reports the elapsed time since t.
func (c Clock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}
