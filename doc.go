// Package turbotimer implements a sharded, single-worker timer scheduler.
//
// Producers call Schedule to run a callback at or after a wall-clock instant.
// A single worker goroutine drains per-shard intake buckets into a min-heap
// and dispatches callbacks in deadline order. Unschedule races safely against
// the worker using a version-tagged task id, guaranteeing that every accepted
// task either runs exactly once or is provably cancelled before it runs,
// never both.
//
// Task records live in a recycled, cache-line-padded slab addressed by
// stable slot ids, sharded to keep the hot Schedule/Unschedule paths off a
// single global lock.
package turbotimer
