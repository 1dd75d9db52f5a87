package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into a single trailing call.
// fn runs once the triggers have been quiet for wait, and no later than
// maxWait after the first trigger of a burst when maxWait is positive.
type Debouncer struct {
	wait    time.Duration
	maxWait time.Duration
	fn      func()

	mu      sync.Mutex
	timer   *time.Timer
	first   time.Time
	stopped bool
}

// NewDebouncer creates a Debouncer calling fn
func NewDebouncer(wait, maxWait time.Duration, fn func()) *Debouncer {
	return &Debouncer{wait: wait, maxWait: maxWait, fn: fn}
}

// Trigger records an event and (re)arms the timer
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	now := time.Now()
	if d.timer == nil {
		d.first = now
		d.timer = time.AfterFunc(d.wait, d.fire)
		return
	}

	// Already fired and waiting for the lock; that call covers this trigger
	if !d.timer.Stop() {
		return
	}

	delay := d.wait
	if d.maxWait > 0 {
		if remaining := d.maxWait - now.Sub(d.first); remaining < delay {
			delay = max(remaining, 0)
		}
	}
	d.timer = time.AfterFunc(delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}

// Stop cancels any pending call. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
