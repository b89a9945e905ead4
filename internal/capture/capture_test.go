package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureBoundedByMaxDepth(t *testing.T) {
	s := Capture()
	assert.LessOrEqual(t, s.Len(), MaxDepth)
	assert.Greater(t, s.Len(), 0)
}

func deepRecurse(n int) Stack {
	if n == 0 {
		return Capture()
	}
	return deepRecurse(n - 1)
}

func TestCaptureTruncatesDeepStacks(t *testing.T) {
	s := deepRecurse(MaxDepth * 2)
	assert.Equal(t, MaxDepth, s.Len())
}

func TestStackEqualIgnoresExactPC(t *testing.T) {
	a := Capture()
	b := Capture()
	// Two captures at the same call site are not required to produce the
	// exact same PCs (inlining, PGO, etc. can shift them by 1 byte within
	// the same function), but must resolve to the same function entries.
	require.Equal(t, a.Len(), b.Len())
	assert.True(t, a.Equal(b))
}

func TestConcat(t *testing.T) {
	a := Capture()
	b := Capture()
	c := Concat(a, b)
	assert.Equal(t, a.Len()+b.Len(), c.Len())
	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, a.Frame(i), c.Frame(i))
	}
	for i := 0; i < b.Len(); i++ {
		assert.Equal(t, b.Frame(i), c.Frame(a.Len()+i))
	}
}

func TestConcatTruncatesToMaxDepth(t *testing.T) {
	a := deepRecurse(MaxDepth * 2)
	b := deepRecurse(MaxDepth * 2)
	c := Concat(a, b)
	assert.Equal(t, MaxDepth, c.Len())
}

func TestKeyStableAcrossEqualStacks(t *testing.T) {
	a := Capture()
	b := Capture()
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
}

func TestKeyDiffersForDifferentStacks(t *testing.T) {
	a := Capture()
	b := deepRecurse(3)
	assert.NotEqual(t, a.Key(), b.Key())
}
