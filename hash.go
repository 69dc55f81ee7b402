package turbotimer

import "unsafe"

// goroutineLocalHint returns a cheap, approximately-per-goroutine value used
// only to pick a bucket/slab shard for cache locality. Correctness never
// depends on this hash -- a poor or even constant value only costs
// contention, never correctness -- so rather than pay for
// runtime.Stack()-based goroutine-id extraction (which allocates and scans a
// formatted string on every Schedule call), this takes the address of a
// stack-local variable: it varies across concurrently-executing goroutines
// (each has its own stack) and is stable across the handful of instructions
// between taking it and picking a shard, which is all locality needs.
func goroutineLocalHint() uintptr {
	var local byte
	return uintptr(unsafe.Pointer(&local))
}

// mix applies a 64-bit avalanche mixer (splitmix64's finalizer) so the
// low-order bits used by `% numBuckets` are not dominated by stack-alignment
// artifacts in goroutineLocalHint's raw address.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

func pickShard(numShards int) int {
	if numShards <= 1 {
		return 0
	}
	h := mix(uint64(goroutineLocalHint()))
	return int(h % uint64(numShards))
}
