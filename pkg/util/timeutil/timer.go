// Copyright 2025 The Distkit Authors.
//
// Use of this software is governed by the MIT License
// included in the /LICENSE file.

package timeutil

import (
	"sync"
	"time"
)

var timerPool sync.Pool

// The Timer type represents a single event. When the Timer expires, the
// current time is sent on Timer.C.
//
// This is an abstraction around the standard library's time.Timer that draws
// from a pool of stopped timers to reduce allocations in hot polling loops.
//
// Unlike the standard library's Timer, this Timer does not begin counting
// down until Reset is called for the first time; the zero value is ready to
// use. Callers that read from C must set Read to true before the next Reset,
// so that Reset can tell whether the channel still holds a stale expiry.
type Timer struct {
	timer *time.Timer
	// C is a local copy of timer.C usable in a select before the timer has
	// been initialized via Reset.
	C    <-chan time.Time
	Read bool
}

// Reset changes the timer to expire after duration d.
func (t *Timer) Reset(d time.Duration) {
	if t.timer == nil {
		switch timer := timerPool.Get(); timer {
		case nil:
			t.timer = time.NewTimer(d)
		default:
			t.timer = timer.(*time.Timer)
			t.timer.Reset(d)
		}
		t.C = t.timer.C
		return
	}
	if !t.timer.Stop() && !t.Read {
		// Drain the stale expiry so the upcoming Reset arms a clean channel.
		<-t.C
	}
	t.timer.Reset(d)
	t.Read = false
}

// Stop prevents the Timer from firing. It returns true if the call stops the
// timer, false if the timer has already expired, been stopped previously, or
// was never initialized with a call to Reset. Stop does not close the
// channel, to prevent a read from succeeding incorrectly.
func (t *Timer) Stop() bool {
	var res bool
	if t.timer != nil {
		res = t.timer.Stop()
		timerPool.Put(t.timer)
	}
	*t = Timer{}
	return res
}
