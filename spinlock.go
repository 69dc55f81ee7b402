package turbotimer

import (
	"runtime"
	"sync/atomic"
)

// spinLock is a simple CAS spinlock: bucket critical sections are O(1)
// pointer writes, far cheaper than the cost of a futex round-trip through
// the OS scheduler.
type spinLock struct {
	lock uint64
}

func (s *spinLock) Lock() {
	for !atomic.CompareAndSwapUint64(&s.lock, 0, 1) {
		runtime.Gosched()
	}
}

func (s *spinLock) Unlock() {
	atomic.StoreUint64(&s.lock, 0)
}
