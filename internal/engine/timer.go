package engine

import (
	"sync"
	"time"
)

// CountdownTimer ticks down a shared time budget once per second and fires a
// one-shot expiry callback when it reaches zero. Cancelling suppresses any
// further signal; the fired flag guarantees the callback runs at most once
// no matter how ticks and Cancel interleave.
type CountdownTimer struct {
	mu        sync.Mutex
	remaining int
	fired     bool
	stopped   bool
	stop      chan struct{}
}

// startCountdown starts a timer over the given budget. onExpire is invoked
// exactly once when the budget reaches zero, unless Cancel ran first. The
// interval is time.Second in production; tests shrink it.
func startCountdown(seconds int, interval time.Duration, onExpire func()) *CountdownTimer {
	t := &CountdownTimer{
		remaining: seconds,
		stop:      make(chan struct{}),
	}
	go t.run(interval, onExpire)
	return t
}

func (t *CountdownTimer) run(interval time.Duration, onExpire func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			if t.tick() {
				onExpire()
				return
			}
		}
	}
}

// tick decrements the remaining budget and reports whether the expiry
// callback should fire now.
func (t *CountdownTimer) tick() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	if t.remaining > 0 {
		t.remaining--
	}
	if t.remaining == 0 {
		t.fired = true
		t.stopped = true
		return true
	}
	return false
}

// Remaining returns the seconds left on the budget.
func (t *CountdownTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Cancel stops ticking and suppresses any not-yet-fired expiry signal.
// Safe to call repeatedly and after expiry.
func (t *CountdownTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	close(t.stop)
}
