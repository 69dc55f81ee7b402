package turbotimer

import (
	"container/heap"
	"context"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler is a sharded timer scheduler: a single dedicated worker
// goroutine runs callbacks accepted via Schedule, racing safely against
// concurrent Unschedule calls via the task slab's version protocol.
type Scheduler struct {
	log   logger
	clock Clock

	buckets []*bucket
	pool    *slab

	mu                   sync.Mutex // guards globalNearestRunTime only
	globalNearestRunTime time.Time
	waiter               *signalWaiter

	started  atomic.Bool
	stopping atomic.Bool

	wg                sync.WaitGroup
	workerGoroutineID atomic.Int64
}

// New creates an unstarted Scheduler. Call Start before Schedule.
func New() *Scheduler {
	return &Scheduler{
		log:                  nopLogger{},
		clock:                SystemClock,
		globalNearestRunTime: infiniteFuture,
		waiter:               newSignalWaiter(),
	}
}

// Start allocates buckets and spawns the worker goroutine. Idempotent while
// already started. Returns ErrInvalid if opts.NumBuckets is out of
// [1, MaxNumBuckets] (0 selects DefaultNumBuckets). It does not return
// ErrNoMemory: a failed allocation in Go ends the process instead of
// returning an error.
func (s *Scheduler) Start(opts Options) error {
	if s.started.Load() {
		return nil
	}

	numBuckets := opts.NumBuckets
	if numBuckets == 0 {
		numBuckets = DefaultNumBuckets
	}
	if numBuckets < 1 || numBuckets > MaxNumBuckets {
		return ErrInvalid
	}

	if opts.Clock != nil {
		s.clock = opts.Clock
	}
	if opts.Logger != nil {
		if err := SetLogger(opts.Logger); err != nil {
			return err
		}
		s.log = newCompLogger("timer_scheduler")
	}

	buckets := make([]*bucket, numBuckets)
	for i := range buckets {
		buckets[i] = newBucket()
	}
	pool := newSlab(opts.SlabBlockSize, numBuckets, s.log)

	s.buckets = buckets
	s.pool = pool
	s.started.Store(true)

	s.wg.Add(1)
	go s.runWorker()

	s.log.Infof("started: num_buckets=%d", numBuckets)
	return nil
}

// Schedule arranges for fn(arg) to run at or after abstime on the worker
// goroutine. Returns InvalidTaskID if the scheduler is not started, is
// stopping, or the task slab is exhausted.
func (s *Scheduler) Schedule(fn func(arg any), arg any, abstime time.Time) TaskID {
	if s.stopping.Load() || !s.started.Load() {
		return InvalidTaskID
	}

	shardIdx := pickShard(len(s.buckets))
	id, earlier := s.buckets[shardIdx].scheduleInto(s.pool, shardIdx, fn, arg, abstime)
	if id == InvalidTaskID {
		return InvalidTaskID
	}

	if earlier {
		wake := false
		s.mu.Lock()
		if abstime.Before(s.globalNearestRunTime) {
			s.globalNearestRunTime = abstime
			wake = true
		}
		s.mu.Unlock()
		if wake {
			s.waiter.WakeOne()
		}
	}

	return id
}

// Unschedule prevents the task denoted by id from running, if it has not
// started running yet. It never blocks and never runs the callback.
//
//   - StatusOK: the task was cancelled.
//   - StatusBusy: the callback is currently executing on the worker.
//   - StatusStopped: the task already ran, was already cancelled, or never
//     existed at a recognizable slot.
//   - a non-nil error (ErrInvalid): id's slot index is out of range.
func (s *Scheduler) Unschedule(id TaskID) (Status, error) {
	if s.pool == nil {
		return StatusStopped, ErrInvalid
	}
	slotID := slotOfTaskID(id)
	t := s.pool.address(slotID)
	if t == nil {
		return StatusStopped, ErrInvalid
	}

	idVersion := versionOfTaskID(id)
	if t.version.CompareAndSwap(idVersion, idVersion+2) {
		return StatusOK, nil
	}
	observed := t.version.Load()
	if observed == idVersion+1 {
		return StatusBusy, nil
	}
	return StatusStopped, nil
}

// StopAndJoin stops accepting new effect from the worker and waits for it to
// finish, including any callback currently in flight. Idempotent.
func (s *Scheduler) StopAndJoin() {
	if !s.started.Load() {
		return
	}
	s.stopping.Store(true)

	s.mu.Lock()
	s.globalNearestRunTime = time.Time{} // force "past", wakes the worker unconditionally
	s.mu.Unlock()
	s.waiter.WakeOne()

	s.wg.Wait()
	s.started.Store(false)
	s.log.Infof("stopped")
}

// WorkerGoroutineID returns a diagnostic (not globally unique, not an OS
// thread id) identifier of the worker goroutine, or 0 before Start.
func (s *Scheduler) WorkerGoroutineID() int64 {
	return s.workerGoroutineID.Load()
}

func (s *Scheduler) runWorker() {
	defer s.wg.Done()
	s.workerGoroutineID.Store(int64(goroutineLocalHint()))
	labels := pprof.Labels("goroutine", "timer_worker")
	pprof.Do(context.Background(), labels, func(context.Context) {
		s.run()
	})
}

// taskHeap is a container/heap.Interface ordered by runTime ascending.
type taskHeap []*task

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].runTime.Before(h[j].runTime) }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)         { *h = append(*h, x.(*task)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// run is the worker loop: reset the global hint before draining so
// in-flight insertions can preempt us; drain every bucket into the heap,
// discarding cancelled tasks; dispatch every task whose deadline has
// passed, re-draining if something earlier snuck in; then sleep until the
// next deadline or a wake signal.
func (s *Scheduler) run() {
	h := make(taskHeap, 0, 4096)

	for !s.stopping.Load() {
		s.mu.Lock()
		s.globalNearestRunTime = infiniteFuture
		s.mu.Unlock()

		for _, b := range s.buckets {
			for t := b.drain(); t != nil; {
				next := t.next // capture before a cancelled task's storage is recycled
				if !t.tryDelete(s.pool) {
					heap.Push(&h, t)
				}
				t = next
			}
		}

		pullAgain := false
		for len(h) > 0 {
			head := h[0]
			if s.clock.Now().Before(head.runTime) {
				break
			}

			s.mu.Lock()
			earlierPending := head.runTime.After(s.globalNearestRunTime)
			s.mu.Unlock()
			if earlierPending {
				pullAgain = true
				break
			}

			popped := heap.Pop(&h).(*task)
			popped.runAndDelete(s.pool, s.log)
		}
		if pullAgain {
			continue
		}

		nextRunTime := infiniteFuture
		if len(h) > 0 {
			nextRunTime = h[0].runTime
		}

		var expectedSignal int64
		shouldWait := true
		s.mu.Lock()
		if nextRunTime.After(s.globalNearestRunTime) {
			shouldWait = false
		} else {
			s.globalNearestRunTime = nextRunTime
			expectedSignal = s.waiter.Snapshot()
		}
		s.mu.Unlock()
		if !shouldWait {
			continue
		}

		s.waiter.WaitUntil(expectedSignal, nextRunTime)
	}
}
