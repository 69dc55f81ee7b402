package turbotimer

import (
	"testing"
	"time"
)

func TestBucketScheduleAndDrain(t *testing.T) {
	pool := newSlab(0, 1, nopLogger{})
	b := newBucket()

	now := time.Now()
	var ran []string

	id1, earlier1 := b.scheduleInto(pool, 0, func(any) { ran = append(ran, "a") }, nil, now.Add(time.Hour))
	if id1 == InvalidTaskID {
		t.Fatal("schedule returned InvalidTaskID")
	}
	if !earlier1 {
		t.Fatal("first schedule into an empty bucket must report earlier=true")
	}

	id2, earlier2 := b.scheduleInto(pool, 0, func(any) { ran = append(ran, "b") }, nil, now.Add(time.Minute))
	if id2 == InvalidTaskID {
		t.Fatal("schedule returned InvalidTaskID")
	}
	if !earlier2 {
		t.Fatal("scheduling an earlier deadline must report earlier=true")
	}

	id3, earlier3 := b.scheduleInto(pool, 0, func(any) { ran = append(ran, "c") }, nil, now.Add(2*time.Hour))
	if id3 == InvalidTaskID {
		t.Fatal("schedule returned InvalidTaskID")
	}
	if earlier3 {
		t.Fatal("scheduling a later deadline must report earlier=false")
	}

	var drained []*task
	for tk := b.drain(); tk != nil; {
		next := tk.next
		drained = append(drained, tk)
		tk = next
	}
	if len(drained) != 3 {
		t.Fatalf("drained %d tasks, want 3", len(drained))
	}

	// Intake list is built head-first, so drain order is most-recently-scheduled first.
	if drained[0].taskID != id3 || drained[1].taskID != id2 || drained[2].taskID != id1 {
		t.Fatalf("unexpected drain order: %v", drained)
	}

	if b.drain() != nil {
		t.Fatal("second drain should observe an empty bucket")
	}
	if !b.nearestRunTime.Equal(infiniteFuture) {
		t.Fatalf("nearestRunTime after drain = %v, want infiniteFuture", b.nearestRunTime)
	}
}

func TestBucketDrainEmptyIsNil(t *testing.T) {
	b := newBucket()
	if b.drain() != nil {
		t.Fatal("drain on a fresh bucket must return nil")
	}
	if !b.nearestRunTime.Equal(infiniteFuture) {
		t.Fatalf("fresh bucket nearestRunTime = %v, want infiniteFuture", b.nearestRunTime)
	}
}
