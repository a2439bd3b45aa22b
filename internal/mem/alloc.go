package mem

import (
	"unsafe"
)

// Alignment is the byte alignment of blocks returned by AllocAligned.
// It matches the runtime's general SIMD alignment.
const Alignment = 64

// AllocAligned allocates a zeroed byte slice of the given size whose first
// byte sits on a 64-byte boundary. It returns nil for non-positive sizes.
//
// The slice over-allocates by Alignment bytes; the extra head room is never
// exposed, and the backing array stays alive as long as the slice does.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	buf := make([]byte, size+Alignment)

	addr := uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // unsafe is required for memory alignment
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)

	return buf[offset : offset+uintptr(size) : offset+uintptr(size)]
}

// IsAligned reports whether the first byte of b sits on an align boundary.
// align must be a power of two.
func IsAligned(b []byte, align int) bool {
	if len(b) == 0 || align <= 0 {
		return false
	}
	addr := uintptr(unsafe.Pointer(&b[0])) //nolint:gosec // unsafe is required for memory alignment
	return addr&uintptr(align-1) == 0
}
