// Package mempool owns the runtime's single backing block and partitions it
// into three bump arenas.
//
// The block is split 60/25/15 between tensor data, temporary buffers and
// general allocations, with a minimum size ("floor") for each pool. It is
// allocated once by Initialize, preferably as an anonymous mapping outside the
// Go heap, and is reused for every inference pass: FreeAll rewinds all three
// arenas at a quiescent point between passes.
//
// # Concurrency Model
//
//   - Initialize, FreeAll, Shutdown, Stats: serialized by an internal mutex.
//   - Arenas returned by Allocator: lock-free allocation from many goroutines.
//   - FreeAll must not race with allocations from the arenas it resets.
//
// Shutdown invalidates every arena previously handed out; they refuse further
// allocations instead of touching freed memory.
package mempool
