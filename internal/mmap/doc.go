// Package mmap provides anonymous, off-heap memory mappings.
//
// # Overview
//
// The memory pool manager obtains its single backing block from MapAnon so
// the runtime's arenas live outside the garbage-collected heap: the GC never
// scans them, and their addresses never move.
//
// # Usage
//
//	m, err := mmap.MapAnon(1 << 20)
//	if err != nil { ... }
//	defer m.Close()
//
//	block := m.Bytes() // page-aligned, zero-filled, read-write
//	_ = m.Advise(mmap.AccessWillNeed)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE, madvise(2) hints
//   - Windows: VirtualAlloc/VirtualFree (Advise is a no-op)
//
// # Thread Safety
//
// Close is idempotent and guarded by an atomic flag. Callers must make sure
// no goroutine touches Bytes() after Close returns.
package mmap
