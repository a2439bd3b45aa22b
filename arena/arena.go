package arena

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

const (
	// DefaultAlignment is the general-purpose alignment (64 bytes, SIMD friendly).
	DefaultAlignment = 64
	// TensorAlignment is the alignment used for tensor payloads.
	TensorAlignment = 32
)

// Stats is a point-in-time snapshot of arena usage.
//
// Note on semantics:
//   - UsedSize: cursor position, including alignment padding
//   - PeakUsage: high-water mark of UsedSize; survives Reset
//   - BytesWasted: padding added for alignment since the last Reset
//   - AllocCount/DeallocCount: counters since the last Reset
type Stats struct {
	TotalSize    uint64
	UsedSize     uint64
	PeakUsage    uint64
	AllocCount   uint64
	DeallocCount uint64
	BytesWasted  uint64
}

// Arena is a bump allocator over one fixed block.
type Arena struct {
	buf  []byte
	base uintptr
	size uint64

	offset   atomic.Uint64 // MUST be atomic - advanced concurrently without locks
	released atomic.Bool

	peak     atomic.Uint64
	allocs   atomic.Uint64
	deallocs atomic.Uint64
	wasted   atomic.Uint64
}

// New creates an Arena over buf. The arena never copies or grows buf, and
// the caller keeps ownership of the memory: it must outlive every region the
// arena hands out.
func New(buf []byte) *Arena {
	a := &Arena{
		buf:  buf[:len(buf):len(buf)],
		size: uint64(len(buf)),
	}
	if len(buf) > 0 {
		a.base = uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // unsafe is required for address alignment
	}
	return a
}

// Alloc reserves size bytes whose first byte is aligned to align and returns
// them as a slice of length and capacity size. An align of 0 selects
// DefaultAlignment; other values must be powers of two.
//
// Alloc returns nil if the arena cannot satisfy the request. The cursor is
// left unchanged on failure. The returned memory is not zeroed after a Reset.
func (a *Arena) Alloc(size, align int) []byte {
	if a == nil || size <= 0 || !a.Valid() {
		return nil
	}
	if align == 0 {
		align = DefaultAlignment
	}
	if align < 0 || align&(align-1) != 0 {
		return nil
	}

	usize := uint64(size)
	ualign := uint64(align)
	alignedSize := (usize + ualign - 1) &^ (ualign - 1)
	if alignedSize < usize {
		return nil
	}

	for {
		cur := a.offset.Load()
		addr := uint64(a.base) + cur
		padding := (ualign - addr&(ualign-1)) & (ualign - 1)
		start := cur + padding
		end := start + alignedSize

		if end > a.size || end < cur {
			return nil
		}

		if !a.offset.CompareAndSwap(cur, end) {
			continue
		}

		a.allocs.Add(1)
		a.wasted.Add(padding + alignedSize - usize)
		a.raisePeak(end)

		return a.buf[start : start+usize : start+usize]
	}
}

func (a *Arena) raisePeak(used uint64) {
	for {
		p := a.peak.Load()
		if used <= p || a.peak.CompareAndSwap(p, used) {
			return
		}
	}
}

// AllocPointer allocates size bytes aligned to align and returns a pointer to
// the first byte, or nil on failure.
func (a *Arena) AllocPointer(size, align int) unsafe.Pointer {
	b := a.Alloc(size, align)
	if b == nil {
		return nil
	}
	return unsafe.Pointer(&b[0]) //nolint:gosec // unsafe is required for arena implementation
}

// AllocFloat32Slice allocates a float32 slice of length n aligned to
// DefaultAlignment, or returns nil on failure.
func (a *Arena) AllocFloat32Slice(n int) []float32 {
	if n <= 0 {
		return nil
	}
	b := a.Alloc(n*int(unsafe.Sizeof(float32(0))), DefaultAlignment)
	if b == nil {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n) //nolint:gosec // unsafe is required for arena implementation
}

// AllocInt8Slice allocates an int8 slice of length n aligned to
// DefaultAlignment, or returns nil on failure.
func (a *Arena) AllocInt8Slice(n int) []int8 {
	if n <= 0 {
		return nil
	}
	b := a.Alloc(n, DefaultAlignment)
	if b == nil {
		return nil
	}
	return unsafe.Slice((*int8)(unsafe.Pointer(&b[0])), n) //nolint:gosec // unsafe is required for arena implementation
}

// Dealloc records a deallocation. Arenas never reclaim individual regions;
// the memory comes back only through Reset.
func (a *Arena) Dealloc(b []byte) {
	if a == nil || b == nil {
		return
	}
	a.deallocs.Add(1)
}

// Reset rewinds the cursor to the start of the block.
//
// IMPORTANT:
//  1. Do NOT call Reset concurrently with Alloc
//  2. Every region allocated before Reset becomes invalid
//  3. PeakUsage is kept; the other counters restart from zero
func (a *Arena) Reset() {
	if a == nil {
		return
	}
	a.offset.Store(0)
	a.allocs.Store(0)
	a.deallocs.Store(0)
	a.wasted.Store(0)
}

// Release marks the arena unusable. Subsequent Alloc calls return nil.
// The owner of the block frees it after Release.
func (a *Arena) Release() {
	if a == nil {
		return
	}
	a.released.Store(true)
}

// Valid reports whether the arena has a block and has not been released.
func (a *Arena) Valid() bool {
	return a != nil && a.size > 0 && !a.released.Load()
}

// Cap returns the capacity of the block in bytes.
func (a *Arena) Cap() int {
	if a == nil {
		return 0
	}
	return len(a.buf)
}

// Len returns the number of bytes consumed so far, padding included.
func (a *Arena) Len() int {
	if a == nil {
		return 0
	}
	return int(a.offset.Load()) //nolint:gosec // bounded by len(a.buf)
}

// Available returns the number of bytes left after the cursor. Alignment
// padding may make a request of exactly Available bytes fail.
func (a *Arena) Available() int {
	if a == nil {
		return 0
	}
	used := a.offset.Load()
	if used >= a.size {
		return 0
	}
	return int(a.size - used) //nolint:gosec // bounded by len(a.buf)
}

// Stats returns the current arena statistics.
func (a *Arena) Stats() Stats {
	if a == nil {
		return Stats{}
	}
	return Stats{
		TotalSize:    a.size,
		UsedSize:     a.offset.Load(),
		PeakUsage:    a.peak.Load(),
		AllocCount:   a.allocs.Load(),
		DeallocCount: a.deallocs.Load(),
		BytesWasted:  a.wasted.Load(),
	}
}

// Usage returns the used share of the block as a percentage.
func (a *Arena) Usage() float64 {
	stats := a.Stats()
	if stats.TotalSize == 0 {
		return 0
	}
	return float64(stats.UsedSize) / float64(stats.TotalSize) * 100
}

func (a *Arena) String() string {
	stats := a.Stats()
	return fmt.Sprintf(
		"Arena{total: %.2f KB, used: %.2f KB, peak: %.2f KB, wasted: %d B, usage: %.1f%%, allocs: %d}",
		float64(stats.TotalSize)/1024,
		float64(stats.UsedSize)/1024,
		float64(stats.PeakUsage)/1024,
		stats.BytesWasted,
		a.Usage(),
		stats.AllocCount,
	)
}
