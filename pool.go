package turbotimer

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	units "github.com/docker/go-units"
)

// defaultSlabBlockSize is the arena block size; blocks are shared by all
// shards. It can be
// overridden via SchedulerConfig.SlabBlockSize, expressed as a human size
// string such as "128KiB" or "1MiB" and parsed with docker/go-units.
const defaultSlabBlockSize = 128 * 1024

const maxSlabShards = 128

// ParseSlabBlockSize parses a human-readable byte size (e.g. "128KiB",
// "1MiB") and rejects anything that would not hold at least one task record.
func ParseSlabBlockSize(spec string) (int, error) {
	if spec == "" {
		return defaultSlabBlockSize, nil
	}
	n, err := units.RAMInBytes(spec)
	if err != nil {
		return 0, fmt.Errorf("slab_block_size: %q: %w", spec, err)
	}
	if n < int64(unsafe.Sizeof(task{})) {
		return 0, fmt.Errorf("slab_block_size: %q is too small to hold a single task record", spec)
	}
	return int(n), nil
}

// slabShard is a contention-reduced fast free-list of slot ids: a single
// CAS-guarded slot, then a second slot and an overflow list, both
// protected by mu.
type slabShard struct {
	fast1       atomic.Pointer[slotNode]
	_cacheLine1 [48]byte
	mu          sync.Mutex
	fast2       *slotNode
	overflow    []SlotID
	_cacheLine2 [40]byte
}

// slotNode lets the lock-free fast path CAS a small boxed value instead of
// racing on a raw SlotID (which, being a plain integer, has no "empty"
// sentinel distinguishable from slot 0).
type slotNode struct {
	id SlotID
}

// slab is the resource pool: it hands out stable SlotIDs backed by
// never-freed arena blocks (so Address is always safe, even for a released
// slot -- safety comes from the version tag, not from pointer validity), and
// recycles them through per-shard free lists to keep Schedule's hot path off
// a single global lock.
type slab struct {
	log logger

	blockTasks int // records per arena block, derived from blockSize

	mu     sync.Mutex // guards blocks (append-only) and the global free list
	blocks []*[]task
	global []SlotID

	// snapshot is a copy-on-write view of blocks, published after every grow
	// so Address can walk it without taking mu -- it must stay lock-free
	// since the cancel path (Unschedule) calls it from arbitrary goroutines.
	snapshot atomic.Pointer[[]*[]task]

	shards []*slabShard
}

func newSlab(blockSize int, numShards int, log logger) *slab {
	if blockSize <= 0 {
		blockSize = defaultSlabBlockSize
	}
	if numShards <= 0 {
		numShards = runtime.GOMAXPROCS(0)
	}
	if numShards > maxSlabShards {
		numShards = maxSlabShards
	}
	blockTasks := blockSize / int(unsafe.Sizeof(task{}))
	if blockTasks < 1 {
		blockTasks = 1
	}
	p := &slab{
		log:        log,
		blockTasks: blockTasks,
		shards:     make([]*slabShard, numShards),
	}
	for i := range p.shards {
		p.shards[i] = &slabShard{}
	}
	return p
}

// grow appends a fresh arena block and returns the SlotID of its first
// record, pushing the rest onto the global free list. Must be called with
// p.mu held.
func (p *slab) grow() (SlotID, bool) {
	blockIndex := len(p.blocks)
	if blockIndex < 0 || (blockIndex+1)*p.blockTasks > (1<<32) {
		return 0, false
	}
	block := make([]task, p.blockTasks)
	p.blocks = append(p.blocks, &block)
	snap := append([]*[]task(nil), p.blocks...)
	p.snapshot.Store(&snap)
	base := SlotID(blockIndex * p.blockTasks)
	for i := 1; i < p.blockTasks; i++ {
		p.global = append(p.global, base+SlotID(i))
	}
	return base, true
}

// acquire returns a recycled or freshly carved-out task slot. shardHint
// selects the preferred shard (callers pass their bucket index for
// locality). It takes the shard's mutex and, when the shard has no free
// slot, the slab's mutex. Returns ok=false only when a new block would take
// the slab past 2^32 task records.
func (p *slab) acquire(shardHint int) (SlotID, *task, bool) {
	shard := p.shards[shardHint%len(p.shards)]

	if node := shard.fast1.Load(); node != nil && shard.fast1.CompareAndSwap(node, nil) {
		return node.id, p.address(node.id), true
	}

	shard.mu.Lock()
	if shard.fast2 != nil {
		id := shard.fast2.id
		shard.fast2 = nil
		shard.mu.Unlock()
		return id, p.address(id), true
	}
	if n := len(shard.overflow); n > 0 {
		id := shard.overflow[n-1]
		shard.overflow = shard.overflow[:n-1]
		shard.mu.Unlock()
		return id, p.address(id), true
	}
	shard.mu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.global); n > 0 {
		id := p.global[n-1]
		p.global = p.global[:n-1]
		return id, p.address(id), true
	}
	id, ok := p.grow()
	if !ok {
		if p.log != nil {
			p.log.Warnf("slab: exhausted (%d blocks x %d records)", len(p.blocks), p.blockTasks)
		}
		return 0, nil, false
	}
	return id, p.address(id), true
}

// releaseTo returns slot to the pool, bumping its version so the next
// acquirer observes a strictly greater version than any previously issued
// for this slot, and puts it on the free list of the shard selected by
// shardHint.
func (p *slab) releaseTo(id SlotID, shardHint int) {
	t := p.address(id)
	t.bumpVersionOnRelease()

	shard := p.shards[shardHint%len(p.shards)]

	if shard.fast1.CompareAndSwap(nil, &slotNode{id: id}) {
		return
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if shard.fast2 == nil {
		shard.fast2 = &slotNode{id: id}
		return
	}
	shard.overflow = append(shard.overflow, id)
	const maxShardOverflow = 4096
	if len(shard.overflow) > maxShardOverflow {
		half := len(shard.overflow) / 2
		spill := append([]SlotID(nil), shard.overflow[:half]...)
		shard.overflow = shard.overflow[half:]
		p.mu.Lock()
		p.global = append(p.global, spill...)
		p.mu.Unlock()
	}
}

// release returns a slot without a shard hint. The worker uses it for every
// slot it gives back (in tryDelete and runAndDelete), since a task does not
// record which bucket produced it. It spreads releases across shards via the
// slot id itself to avoid concentrating them on shard 0.
func (p *slab) release(id SlotID) {
	p.releaseTo(id, int(id))
}

// address returns a stable pointer to the record for id. Valid for the
// lifetime of the process, including for ids that have since been released
// or recycled -- callers must consult the version field, not pointer
// validity, to know whether the record still describes their task.
func (p *slab) address(id SlotID) *task {
	blocks := p.snapshot.Load()
	if blocks == nil {
		return nil
	}
	blockIndex := int(id) / p.blockTasks
	offset := int(id) % p.blockTasks
	if blockIndex < 0 || blockIndex >= len(*blocks) {
		return nil
	}
	return &(*(*blocks)[blockIndex])[offset]
}
