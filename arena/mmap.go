package arena

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Mmap is a bump allocator over anonymous mmap regions: a genuine
// off-heap InnerAllocator a host can install instead of Heap, so frees
// are real munmaps rather than GC reclamation.
//
// It is a bump allocator, not a general-purpose one: it keeps one count
// of outstanding allocations across every region it has mapped, and Free
// unmaps the current region only once that count drops to zero. A region
// that has been replaced by a fresh one is never unmapped. This matches
// the workloads this profiler targets (attribute-and-report, not
// long-running servers that need to reclaim fragmented space).
type Mmap struct {
	regionSize int

	mu      sync.Mutex
	region  []byte
	offset  int
	live    int
	addrLen map[uintptr]int
}

// NewMmap creates an Mmap allocator that grows its backing region in
// regionSize-byte chunks (rounded up to the system page size implicitly
// by mmap itself).
func NewMmap(regionSize int) *Mmap {
	if regionSize <= 0 {
		regionSize = 4 << 20 // 4 MiB
	}
	return &Mmap{regionSize: regionSize, addrLen: make(map[uintptr]int)}
}

// Alloc bumps the allocator's offset within its current mmap region,
// mapping a fresh region once the current one cannot satisfy size.
func (m *Mmap) Alloc(size int) (uintptr, []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.region == nil || m.offset+size > len(m.region) {
		n := m.regionSize
		if size > n {
			n = size
		}
		region, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
		if err != nil {
			panic(fmt.Sprintf("arena: mmap failed: %v", err))
		}
		m.region = region
		m.offset = 0
	}

	buf := m.region[m.offset : m.offset+size]
	addr := addrOf(buf)
	m.addrLen[addr] = size
	m.offset += size
	m.live++

	return addr, buf
}

// Free decrements the live count; once every outstanding allocation, in
// any region, has been freed, the current region is munmapped. Earlier
// regions are not unmapped.
func (m *Mmap) Free(addr uintptr, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.addrLen, addr)
	m.live--
	if m.live <= 0 && m.region != nil {
		_ = unix.Munmap(m.region)
		m.region = nil
		m.offset = 0
		m.live = 0
	}
}
