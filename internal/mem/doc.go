// Package mem provides heap allocation helpers for backing blocks.
//
// # Aligned Allocation
//
// The memory pool prefers an off-heap mapping for its backing block. When a
// mapping is unavailable, or heap backing is requested explicitly, the block
// comes from AllocAligned so the first sub-pool still starts on a 64-byte
// boundary.
package mem
