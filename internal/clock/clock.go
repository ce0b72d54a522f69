package clock

import "time"

// Clock abstracts time for services that stamp rows, so tests can pin it.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the real time in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NewSystemClock is the production Clock constructor.
func NewSystemClock() Clock { return SystemClock{} }
