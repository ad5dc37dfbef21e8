package jwttoken

import "time"

// Timer is a pending deferred callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs a callback once after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// timeScheduler schedules callbacks on the runtime timer.
type timeScheduler struct{}

// Compile-time check to ensure timeScheduler implements Scheduler
var _ Scheduler = timeScheduler{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
