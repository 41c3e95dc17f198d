// Package debounce coalesces bursts of calls into a single delayed invocation.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs the most recently scheduled function once the wait period
// elapses without another call. Each Call cancels the pending timer.
type Debouncer struct {
	mu      sync.Mutex
	wait    time.Duration
	timer   *time.Timer
	gen     uint64
	pending func()
	stopped bool
}

// New builds a Debouncer. A non-positive wait runs functions synchronously.
func New(wait time.Duration) *Debouncer {
	return &Debouncer{wait: wait}
}

// Call schedules fn, replacing any function still waiting to run.
func (d *Debouncer) Call(fn func()) {
	if fn == nil {
		return
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.wait <= 0 {
		d.mu.Unlock()
		fn()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = fn
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.wait, func() {
		d.fire(gen)
	})
	d.mu.Unlock()
}

// Flush runs the pending function immediately, if any.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.take()
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Cancel drops the pending function without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.take()
	d.mu.Unlock()
}

// Stop cancels the pending function and ignores every later Call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.take()
	d.stopped = true
	d.mu.Unlock()
}

// Pending reports whether a function is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// a newer Call replaced this timer; it owns the pending function now
	if d.gen != gen {
		d.mu.Unlock()
		return
	}
	fn := d.take()
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// take must be called with mu held.
func (d *Debouncer) take() func() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	fn := d.pending
	d.pending = nil
	return fn
}
