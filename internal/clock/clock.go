// Package clock provides the tick source that drives the timer engine.
package clock

import (
	"sync"
	"time"
)

// Clock provides time information and tickers.
// This interface allows time to be controlled in tests.
type Clock interface {
	Now() time.Time
	NewTicker(interval time.Duration) Ticker
}

// Ticker delivers one instant per interval until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real is the system clock.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

// NewTicker returns a ticker whose n-th tick is scheduled at start+n*interval.
// A tick that is late does not push later ticks back; ticks that were missed
// entirely (for example across a system sleep) are skipped.
func (Real) NewTicker(interval time.Duration) Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	t := &realTicker{
		c:    make(chan time.Time),
		done: make(chan struct{}),
	}
	go t.run(time.Now(), interval)
	return t
}

type realTicker struct {
	c    chan time.Time
	done chan struct{}
	once sync.Once
}

func (t *realTicker) C() <-chan time.Time {
	return t.c
}

func (t *realTicker) Stop() {
	t.once.Do(func() { close(t.done) })
}

func (t *realTicker) run(start time.Time, interval time.Duration) {
	n := int64(1)
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-t.done:
			return
		case now := <-timer.C:
			select {
			case t.c <- now:
			case <-t.done:
				return
			}
			n = nextSlot(start, time.Now(), interval, n)
			timer.Reset(time.Until(start.Add(time.Duration(n) * interval)))
		}
	}
}

// nextSlot returns the index of the first tick after prev that is not yet due.
func nextSlot(start, now time.Time, interval time.Duration, prev int64) int64 {
	next := prev + 1
	due := int64(now.Sub(start)/interval) + 1
	if due > next {
		return due
	}
	return next
}
