package turbotimer

import (
	"sync"
	"time"
)

// signalWaiter is a wait primitive: an integer counter plus "wait until the
// counter changes or a deadline elapses", used by the worker to sleep until
// either its next deadline or a wakeup from Schedule. Go's stdlib has no
// portable futex-style wait-on-atomic-until-deadline call, so this is built
// from sync.Cond plus a deadline timer.
type signalWaiter struct {
	mu      sync.Mutex
	cond    *sync.Cond
	counter int64
}

func newSignalWaiter() *signalWaiter {
	w := &signalWaiter{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Snapshot returns the current counter value, for callers that need to
// remember what they last observed before later calling WaitUntil.
func (w *signalWaiter) Snapshot() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.counter
}

// WakeOne bumps the counter and wakes the (single) waiter. Safe to call with
// no one waiting.
func (w *signalWaiter) WakeOne() {
	w.mu.Lock()
	w.counter++
	w.mu.Unlock()
	w.cond.Signal()
}

// WaitUntil blocks until the counter no longer equals expected, or until
// deadline elapses, whichever comes first. Returns true if woken by a
// counter change, false on deadline timeout.
func (w *signalWaiter) WaitUntil(expected int64, deadline time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.counter != expected {
		return true
	}

	timer := time.AfterFunc(time.Until(deadline), func() {
		w.mu.Lock()
		w.cond.Broadcast()
		w.mu.Unlock()
	})
	defer timer.Stop()

	for w.counter == expected && time.Now().Before(deadline) {
		w.cond.Wait()
	}
	return w.counter != expected
}
