package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeapAllocReturnsUsableBuffer(t *testing.T) {
	var h Heap
	addr, buf := h.Alloc(16)
	require.Len(t, buf, 16)
	assert.NotZero(t, addr)
	buf[0] = 0xAB
	assert.Equal(t, byte(0xAB), buf[0])
}

func TestHeapAllocZeroSize(t *testing.T) {
	var h Heap
	addr, buf := h.Alloc(0)
	assert.Zero(t, addr)
	assert.Empty(t, buf)
}

func TestHeapFreeIsNoop(t *testing.T) {
	var h Heap
	assert.NotPanics(t, func() { h.Free(1, 16) })
}

func TestMmapAllocAndFreeRoundTrip(t *testing.T) {
	m := NewMmap(4096)
	addr, buf := m.Alloc(64)
	require.Len(t, buf, 64)
	assert.NotZero(t, addr)

	buf[0] = 0x42
	assert.Equal(t, byte(0x42), buf[0])

	m.Free(addr, 64)
}

func TestMmapGrowsBeyondRegionSize(t *testing.T) {
	m := NewMmap(64)
	addr1, buf1 := m.Alloc(32)
	addr2, buf2 := m.Alloc(64) // forces a new region

	require.Len(t, buf1, 32)
	require.Len(t, buf2, 64)
	assert.NotEqual(t, addr1, addr2)

	m.Free(addr1, 32)
	m.Free(addr2, 64)
}

func TestMmapUnmapsOnceRegionIsFullyFreed(t *testing.T) {
	m := NewMmap(128)
	addr, _ := m.Alloc(16)
	assert.NotNil(t, m.region)

	m.Free(addr, 16)
	assert.Nil(t, m.region)
}
