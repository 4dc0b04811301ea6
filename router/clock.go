package router

import "time"

// Clock abstracts time.Now/time.After so router_test.go can drive the
// 30-second availability deadline without an actual 30-second test.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
