package opchan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heapprof/heapprof/internal/capture"
)

func TestSendRecvFIFO(t *testing.T) {
	ch := New(4)
	ch.Send(AllocOp{Addr: 1, Size: 10})
	ch.Send(AllocOp{Addr: 2, Size: 20})

	first := ch.Recv().(AllocOp)
	second := ch.Recv().(AllocOp)

	assert.Equal(t, uintptr(1), first.Addr)
	assert.Equal(t, uintptr(2), second.Addr)
}

func TestSendBlocksWhenFull(t *testing.T) {
	ch := New(1)
	ch.Send(AllocOp{Addr: 1})

	done := make(chan struct{})
	go func() {
		ch.Send(AllocOp{Addr: 2})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second send should have blocked on a full channel")
	case <-time.After(20 * time.Millisecond):
	}

	ch.Recv()
	<-done
}

func TestDeallocOpCarriesStack(t *testing.T) {
	ch := New(1)
	s := capture.Capture()
	ch.Send(DeallocOp{Addr: 5, Stack: s})
	op := ch.Recv().(DeallocOp)
	require.Equal(t, uintptr(5), op.Addr)
	assert.True(t, op.Stack.Equal(s))
}

func TestRangeOverChan(t *testing.T) {
	ch := New(2)
	ch.Send(AllocOp{Addr: 1})
	ch.Send(AllocOp{Addr: 2})
	ch.Close()

	var n int
	for range ch.Chan() {
		n++
	}
	assert.Equal(t, 2, n)
}
