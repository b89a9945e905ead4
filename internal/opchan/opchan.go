// Package opchan is the bounded, multi-producer/single-consumer queue that
// decouples the allocator shim's producers from the collector goroutine.
//
// A hand-rolled capacity-1 ring buffer with spin-backoff producers and
// consumer is the classic shape for this, but a Go channel already is
// exactly that contract —
// bounded, FIFO per sender, and the runtime parks/wakes blocked goroutines
// instead of spinning — so reproducing the spin loop by hand on top of
// atomics would be strictly worse than the primitive the language already
// gives for this. opchan.Channel is a thin, typed wrapper over chan
// Operation so the rest of the profiler doesn't sprinkle raw channel types
// across package boundaries.
package opchan

import (
	"github.com/heapprof/heapprof/internal/capture"
	"github.com/heapprof/heapprof/report"
)

// Operation is one of AllocOp, DeallocOp, ReportOp, or DropReportOp.
type Operation interface {
	isOperation()
}

// AllocOp records a tracked allocation.
type AllocOp struct {
	Addr  uintptr
	Size  int
	Stack capture.Stack
}

// DeallocOp records a tracked deallocation.
type DeallocOp struct {
	Addr  uintptr
	Stack capture.Stack
}

// ReportOp requests a Report snapshot; the Collector replies on Reply.
type ReportOp struct {
	Reply chan<- *report.Report
}

// DropReportOp returns a Report to the Collector goroutine for teardown,
// keeping potentially large map deallocation off the caller's hot path.
type DropReportOp struct {
	Report *report.Report
}

func (AllocOp) isOperation()      {}
func (DeallocOp) isOperation()    {}
func (ReportOp) isOperation()     {}
func (DropReportOp) isOperation() {}

// Channel is a bounded FIFO of Operations.
type Channel struct {
	ops chan Operation
}

// New creates a Channel with the given capacity. Capacity 1 gives the
// strictest backpressure; callers may widen it for throughput.
func New(capacity int) *Channel {
	if capacity < 1 {
		capacity = 1
	}
	return &Channel{ops: make(chan Operation, capacity)}
}

// Send enqueues op, blocking if the channel is full. This is the producer
// side the Shim calls from any application goroutine.
func (c *Channel) Send(op Operation) {
	c.ops <- op
}

// Recv dequeues the next Operation, blocking if the channel is empty. Only
// the Collector goroutine calls this.
func (c *Channel) Recv() Operation {
	return <-c.ops
}

// Chan exposes the underlying channel for range-based consume loops.
func (c *Channel) Chan() <-chan Operation {
	return c.ops
}

// Close closes the channel; further Sends panic, matching Go's own channel
// semantics. Used when draining a Collector during Reset.
func (c *Channel) Close() {
	close(c.ops)
}
