// Package arena provides a fixed-capacity bump allocator over one external
// memory block.
//
// The allocator never grows and never frees individual regions. Alloc advances
// an atomic cursor with a compare-and-swap loop, so concurrent callers never
// take a lock; Reset rewinds the cursor and invalidates every region issued
// before it.
//
// # Concurrency Model
//
//   - Alloc, Dealloc, Stats, Available: safe for concurrent use.
//   - Reset: NOT safe concurrently with Alloc, and only once no issued region
//     is still in use (for example between two inference passes).
//
// # Failure Semantics
//
// Alloc never panics. A request that does not fit, has a non-positive size or
// an invalid alignment returns nil and leaves the cursor unchanged. Callers
// must check the result.
//
// # Memory Safety
//
// The backing block may live outside the Go heap. Never store Go pointers
// (slices, strings, maps, interfaces) inside arena memory; the garbage
// collector does not scan it.
package arena
