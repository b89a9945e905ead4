// Package arena provides InnerAllocator backends for heapprof.Allocator:
// a GC-heap passthrough and an mmap-backed bump allocator.
package arena

// Heap is the default InnerAllocator: a direct passthrough to Go's own
// garbage-collected heap, the analogue of wrapping the platform's System
// allocator.
type Heap struct{}

// Alloc returns a freshly made, zeroed byte slice of the requested size.
// The returned address is the slice's data pointer, reported only for
// bookkeeping — callers must keep using the returned []byte to access the
// memory; Go's GC, not this address, is what keeps it alive.
func (Heap) Alloc(size int) (uintptr, []byte) {
	buf := make([]byte, size)
	return addrOf(buf), buf
}

// Free is a no-op: the GC reclaims heap allocations once unreachable.
// It exists so Heap satisfies heapprof.InnerAllocator symmetrically with
// arena.Mmap, which does need an explicit release.
func (Heap) Free(uintptr, int) {}
