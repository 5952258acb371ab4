// Package debounce collapses bursts of triggers into one call per quiet period.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs fn once the triggers stop for the configured delay.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	armed   bool
	stopped bool
}

// New returns a Debouncer that calls fn after delay of quiet.
func New(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger arms the timer, cancelling any pending one.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	d.armed = true
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// A timer that lost the race with a re-arm or Flush must not run.
	if !d.armed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.armed = false
	d.mu.Unlock()
	d.fn()
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

// Flush runs fn now if a call is pending. It returns true if fn ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if !d.armed {
		d.mu.Unlock()
		return false
	}
	d.armed = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.fn()
	return true
}

// Stop cancels any pending call and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.armed = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
}
