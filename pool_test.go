package turbotimer

import (
	"testing"
	"unsafe"
)

func TestSlabAcquireDistinctSlots(t *testing.T) {
	pool := newSlab(0, 2, nopLogger{})
	seen := map[SlotID]bool{}
	for i := 0; i < 64; i++ {
		id, tk, ok := pool.acquire(i)
		if !ok {
			t.Fatalf("acquire(%d) failed", i)
		}
		if tk == nil {
			t.Fatalf("acquire(%d) returned nil task", i)
		}
		if seen[id] {
			t.Fatalf("slot %d acquired twice without release", id)
		}
		seen[id] = true
	}
}

func TestSlabReleaseThenReacquireBumpsVersion(t *testing.T) {
	pool := newSlab(0, 1, nopLogger{})
	id, tk, ok := pool.acquire(0)
	if !ok {
		t.Fatal("acquire failed")
	}
	v1 := tk.snapshotVersion()

	pool.releaseTo(id, 0)
	if v1a := tk.version.Load(); v1a == v1 {
		t.Fatalf("release did not bump version: still %d", v1a)
	}

	id2, tk2, ok := pool.acquire(0)
	if !ok {
		t.Fatal("reacquire failed")
	}
	if id2 != id {
		t.Fatalf("reacquire returned slot %d, want recycled slot %d", id2, id)
	}
	v2 := tk2.snapshotVersion()
	if v2 == v1 {
		t.Fatalf("recycled slot reused version %d", v1)
	}
	if v2%2 != 0 {
		t.Fatalf("recycled slot version %d is not even", v2)
	}
}

func TestSlabAddressStableAcrossGrow(t *testing.T) {
	pool := newSlab(int(64*unsafe.Sizeof(task{})), 1, nopLogger{})
	id, tk, ok := pool.acquire(0)
	if !ok {
		t.Fatal("acquire failed")
	}
	tk.reset(nil, "marker", infiniteFuture)

	// force growth by acquiring many more slots than the tiny first block holds
	for i := 0; i < 4096; i++ {
		if _, _, ok := pool.acquire(0); !ok {
			t.Fatalf("acquire %d failed during forced growth", i)
		}
	}

	got := pool.address(id)
	if got != tk {
		t.Fatal("address() returned a different pointer after growth; must stay stable")
	}
	if got.arg != "marker" {
		t.Fatalf("address() record corrupted: arg = %v", got.arg)
	}
}

func TestSlabAddressOutOfRangeReturnsNil(t *testing.T) {
	pool := newSlab(0, 1, nopLogger{})
	if got := pool.address(SlotID(1 << 20)); got != nil {
		t.Fatalf("address() on never-grown slot = %v, want nil", got)
	}
}

func TestParseSlabBlockSize(t *testing.T) {
	if n, err := ParseSlabBlockSize(""); err != nil || n != defaultSlabBlockSize {
		t.Fatalf("ParseSlabBlockSize(\"\") = (%d, %v), want (%d, nil)", n, err, defaultSlabBlockSize)
	}
	if n, err := ParseSlabBlockSize("1MiB"); err != nil || n != 1<<20 {
		t.Fatalf("ParseSlabBlockSize(\"1MiB\") = (%d, %v), want (%d, nil)", n, err, 1<<20)
	}
	if _, err := ParseSlabBlockSize("not-a-size"); err == nil {
		t.Fatal("ParseSlabBlockSize(\"not-a-size\") should fail")
	}
	if _, err := ParseSlabBlockSize("1B"); err == nil {
		t.Fatal("ParseSlabBlockSize(\"1B\") should fail: too small for one task record")
	}
}

