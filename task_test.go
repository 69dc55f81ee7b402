package turbotimer

import "testing"

func TestTaskIDRoundTrip(t *testing.T) {
	cases := []struct {
		slot    SlotID
		version uint32
	}{
		{0, 2},
		{1, 4},
		{0xFFFFFFFF, 1},
		{12345, 0xFFFFFFFE},
		{1, 0xFFFFFFFF},
	}
	for _, c := range cases {
		id := makeTaskID(c.slot, c.version)
		if got := slotOfTaskID(id); got != c.slot {
			t.Errorf("slotOfTaskID(makeTaskID(%d, %d)) = %d, want %d", c.slot, c.version, got, c.slot)
		}
		if got := versionOfTaskID(id); got != c.version {
			t.Errorf("versionOfTaskID(makeTaskID(%d, %d)) = %d, want %d", c.slot, c.version, got, c.version)
		}
	}
}

func TestInvalidTaskIDIsZero(t *testing.T) {
	if InvalidTaskID != 0 {
		t.Fatalf("InvalidTaskID = %d, want 0", InvalidTaskID)
	}
	if makeTaskID(0, 0) != TaskID(InvalidTaskID) {
		t.Fatalf("makeTaskID(0, 0) should equal InvalidTaskID")
	}
}

func TestSnapshotVersionSkipsZero(t *testing.T) {
	tk := &task{}
	// zero value: version starts at 0, which must never be handed out.
	v := tk.snapshotVersion()
	if v == 0 {
		t.Fatalf("snapshotVersion returned 0")
	}
	if v != 2 {
		t.Fatalf("snapshotVersion() = %d, want 2", v)
	}
}

func TestBumpVersionOnReleaseSkipsZeroOnWrap(t *testing.T) {
	tk := &task{}
	tk.version.Store(0xFFFFFFFE) // next +2 would wrap to 0
	tk.bumpVersionOnRelease()
	if got := tk.version.Load(); got != 2 {
		t.Fatalf("bumpVersionOnRelease wrapped to %d, want 2", got)
	}
}

func TestBumpVersionOnReleaseIsEvenMonotonic(t *testing.T) {
	tk := &task{}
	tk.version.Store(2)
	prev := tk.version.Load()
	for i := 0; i < 5; i++ {
		tk.bumpVersionOnRelease()
		cur := tk.version.Load()
		if cur%2 != 0 {
			t.Fatalf("version %d is not even", cur)
		}
		if cur == prev {
			t.Fatalf("version did not advance: %d -> %d", prev, cur)
		}
		prev = cur
	}
}

func TestRunAndDeleteCancelledBeforeRun(t *testing.T) {
	pool := newSlab(0, 1, nopLogger{})
	slotID, tk, ok := pool.acquire(0)
	if !ok {
		t.Fatal("acquire failed")
	}
	tk.reset(func(any) {
		t.Fatal("callback must not run once cancelled")
	}, nil, infiniteFuture)
	version := tk.snapshotVersion()
	tk.taskID = makeTaskID(slotID, version)

	// simulate a concurrent Unschedule landing first
	if !tk.version.CompareAndSwap(version, version+2) {
		t.Fatal("unschedule CAS should have succeeded")
	}

	result := tk.runAndDelete(pool, nopLogger{})
	if result != resultSkippedCancelled {
		t.Fatalf("runAndDelete() = %v, want resultSkippedCancelled", result)
	}
}

func TestInvokeCallbackRecoversPanic(t *testing.T) {
	ran := false
	invokeCallback(func(any) {
		ran = true
		panic("boom")
	}, nil, nopLogger{})
	if !ran {
		t.Fatal("callback did not run before panicking")
	}
}
