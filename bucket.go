package turbotimer

import (
	"sync/atomic"
	"time"
)

// infiniteFuture is an upper bound no real deadline can exceed, used as
// "nothing pending".
var infiniteFuture = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// bucket is one intake shard. Producers push under the spinlock; the worker
// drains the whole list in one swap. head is additionally mirrored through
// an atomic pointer so drain's empty-bucket fast path (the common case once
// the worker is caught up) never touches the lock.
type bucket struct {
	mu             spinLock
	head           atomic.Pointer[task]
	nearestRunTime time.Time
	_pad           [24]byte
}

func newBucket() *bucket {
	return &bucket{nearestRunTime: infiniteFuture}
}

// scheduleInto acquires a task slot from pool, fills it, and links it at the
// head of the intake list. shardIdx is both the bucket's own index (used to
// pick the pool's matching shard for locality) and is returned in the
// TaskID's slot only indirectly, via the pool.
func (b *bucket) scheduleInto(pool *slab, shardIdx int, fn taskFn, arg any, runTime time.Time) (TaskID, bool) {
	slotID, t, ok := pool.acquire(shardIdx)
	if !ok {
		return InvalidTaskID, false
	}
	t.reset(fn, arg, runTime)
	version := t.snapshotVersion()
	id := makeTaskID(slotID, version)
	t.taskID = id

	earlier := false
	b.mu.Lock()
	t.next = b.head.Load()
	b.head.Store(t)
	if runTime.Before(b.nearestRunTime) {
		b.nearestRunTime = runTime
		earlier = true
	}
	b.mu.Unlock()

	return id, earlier
}

// drain atomically detaches the whole intake list and resets nearestRunTime
// to infiniteFuture, returning the detached list's head (nil if empty).
// Called only from the worker goroutine.
func (b *bucket) drain() *task {
	if b.head.Load() == nil {
		return nil
	}
	b.mu.Lock()
	head := b.head.Load()
	if head != nil {
		b.head.Store(nil)
		b.nearestRunTime = infiniteFuture
	}
	b.mu.Unlock()
	return head
}
