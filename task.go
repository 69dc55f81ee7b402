package turbotimer

import (
	"sync/atomic"
	"time"
)

// TaskID is the externally visible handle returned by Schedule. The low 32
// bits identify a slot in the resource pool; the high 32 bits are the slot's
// version at the time it was scheduled.
type TaskID uint64

// InvalidTaskID is never returned for a successfully accepted task. Version 0
// is skipped by the pool so a freshly zeroed slot is never confused with a
// live id.
const InvalidTaskID TaskID = 0

// SlotID indexes a record in the resource pool.
type SlotID uint32

func makeTaskID(slot SlotID, version uint32) TaskID {
	return TaskID(uint64(version)<<32 | uint64(slot))
}

func slotOfTaskID(id TaskID) SlotID {
	return SlotID(uint64(id) & 0xFFFFFFFF)
}

func versionOfTaskID(id TaskID) uint32 {
	return uint32(uint64(id) >> 32)
}

// taskFn is the callback signature: fn(arg) executes on the worker goroutine.
type taskFn func(arg any)

// task is a fixed-shape record recycled by the resource pool. Tasks are
// filled in Bucket.scheduleInto and destroyed (returned to the pool) in
// tryDelete or runAndDelete, run only from the worker goroutine.
//
// version is always even when the slot is free or scheduled-but-not-run,
// +1 (odd) while fn is executing, and back to even (+2) once fn has returned
// or the task was cancelled -- this is the sole synchronization variable
// racing Unschedule against the worker.
type task struct {
	next    *task     // intake-list link; worker-owned after drain
	runTime time.Time // absolute target instant
	fn      taskFn
	arg     any
	taskID  TaskID
	version atomic.Uint32
	_pad    [20]byte // round up towards a cache line; avoids false sharing between adjacent slab slots
}

// reset prepares a recycled task for reuse without disturbing its version,
// which the pool bumps separately on release.
func (t *task) reset(fn taskFn, arg any, runTime time.Time) {
	t.next = nil
	t.fn = fn
	t.arg = arg
	t.runTime = runTime
}

// snapshotVersion returns the task's version, advancing past 0 if necessary
// (0 is reserved so InvalidTaskID can never collide with a live id).
func (t *task) snapshotVersion() uint32 {
	v := t.version.Load()
	if v == 0 {
		if t.version.CompareAndSwap(0, 2) {
			return 2
		}
		return t.version.Load()
	}
	return v
}

// bumpVersionOnRelease advances the version by 2, skipping 0 on wraparound,
// so the next Acquire of this slot produces a TaskID with a strictly greater
// (mod 2^32) version than any id ever issued for it before.
func (t *task) bumpVersionOnRelease() {
	for {
		old := t.version.Load()
		next := old + 2
		if next == 0 {
			next = 2
		}
		if t.version.CompareAndSwap(old, next) {
			return
		}
	}
}

// tryDelete returns the slot to the pool and reports true if this task was
// unscheduled (its version no longer matches the one captured in its id)
// before the worker could pull it off the bucket's intake list.
func (t *task) tryDelete(pool *slab) bool {
	idVersion := versionOfTaskID(t.taskID)
	if t.version.Load() != idVersion {
		pool.release(slotOfTaskID(t.taskID))
		return true
	}
	return false
}

// runAndDeleteResult reports what runAndDelete actually did, for logging and
// testing.
type runAndDeleteResult int

const (
	resultRan runAndDeleteResult = iota
	resultSkippedCancelled
	resultSkippedInvalidVersion
)

// runAndDelete executes fn(arg) if the task has not been cancelled, publishes
// completion via a release-ordered version store, and returns the slot to the
// pool. Called only from the worker goroutine.
func (t *task) runAndDelete(pool *slab, log logger) runAndDeleteResult {
	idVersion := versionOfTaskID(t.taskID)
	if t.version.CompareAndSwap(idVersion, idVersion+1) {
		invokeCallback(t.fn, t.arg, log)
		t.version.Store(idVersion + 2)
		pool.release(slotOfTaskID(t.taskID))
		return resultRan
	}
	observed := t.version.Load()
	if observed == idVersion+2 {
		pool.release(slotOfTaskID(t.taskID))
		return resultSkippedCancelled
	}
	log.Errorf("task_id=%d: invalid version=%d, expecting %d", t.taskID, observed, idVersion+2)
	return resultSkippedInvalidVersion
}

// invokeCallback runs fn(arg), recovering a panic so a single misbehaving
// callback cannot take down the worker goroutine or wedge Unschedule on
// StatusBusy forever.
func invokeCallback(fn taskFn, arg any, log logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("recovered panic in timer callback: %v\n%s", r, capturePanicStack())
		}
	}()
	if fn != nil {
		fn(arg)
	}
}
