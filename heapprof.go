// Package heapprof is a sampling-free heap profiler: every allocation and
// deallocation routed through an Allocator is attributed to its call
// stack and aggregated into outstanding byte counts per unique stack.
//
// Go gives no supported way to intercept the allocations runtime.mallocgc
// makes on behalf of make/new/append — that logic lives entirely inside
// the runtime package, and even Go's own built-in heap profiler
// (runtime/pprof) is a sampling profiler for exactly that reason. This
// package therefore targets the shape of the same problem Go code can
// actually express: an explicit Allocator that instrumented call sites
// opt into, the same pattern arena/slab/pool libraries in this ecosystem
// already use.
package heapprof

import (
	"sync/atomic"

	"github.com/heapprof/heapprof/internal/capture"
	"github.com/heapprof/heapprof/internal/collector"
	"github.com/heapprof/heapprof/internal/config"
	"github.com/heapprof/heapprof/internal/opchan"
	"github.com/heapprof/heapprof/internal/reentrant"
	"github.com/heapprof/heapprof/report"
)

// InnerAllocator is the platform allocator contract an Allocator wraps.
// Implementations live in package arena.
type InnerAllocator interface {
	Alloc(size int) (uintptr, []byte)
	Free(addr uintptr, size int)
}

// Allocator wraps an InnerAllocator and, once armed by Init, attributes
// every Alloc/Free it serves to the call stack that issued it.
//
// Create one with New: the zero value has no inner allocator, and Alloc
// and Free on it panic. Until Init installs a Collector, Alloc/Free
// simply pass through to inner.
type Allocator struct {
	inner InnerAllocator
	cl    atomic.Pointer[collector.Client]
	cfg   atomic.Pointer[config.Config]
}

// New returns an Allocator wrapping inner. inner must not be nil.
func New(inner InnerAllocator) *Allocator {
	return &Allocator{inner: inner}
}

// Init resolves configuration from the environment (or from the Options
// given), spawns the Collector goroutine, and arms the Allocator. It
// blocks until the Collector signals it is ready to consume events, so
// no event posted after Init returns can race the consumer's startup.
func (a *Allocator) Init(opts ...Option) error {
	cfg := config.FromEnv()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Apply()

	cl := collector.Start(cfg.ChannelCapacity)
	a.cl.Store(cl)
	a.cfg.Store(&cfg)
	return nil
}

// Alloc serves size bytes from the inner allocator and, if armed and the
// calling goroutine's reentrancy flag is enabled, attributes the
// allocation to the caller's stack.
func (a *Allocator) Alloc(size int) (uintptr, []byte) {
	addr, buf := a.inner.Alloc(size)

	cl := a.cl.Load()
	if cl == nil || !reentrant.Enabled() {
		return addr, buf
	}

	reentrant.Disable()
	s := capture.Capture()
	cl.Send(opchan.AllocOp{Addr: addr, Size: size, Stack: s})
	reentrant.Enable()

	return addr, buf
}

// Free attributes the deallocation of addr (posting the event before
// calling inner.Free, so the Collector still sees the address as live
// when it processes the event) and then releases it to the inner
// allocator.
func (a *Allocator) Free(addr uintptr, size int) {
	cl := a.cl.Load()
	if cl != nil && reentrant.Enabled() {
		reentrant.Disable()
		s := capture.Capture()
		cl.Send(opchan.DeallocOp{Addr: addr, Stack: s})
		reentrant.Enable()
	}
	a.inner.Free(addr, size)
}

// Report requests a snapshot of the current stack→bytes aggregation. It
// returns nil if the Allocator has not been Init'd.
func (a *Allocator) Report() *report.Handle {
	cl := a.cl.Load()
	if cl == nil {
		return nil
	}

	reply := make(chan *report.Report, 1)
	cl.Send(opchan.ReportOp{Reply: reply})
	r := <-reply

	return report.NewHandle(r, func(dropped *report.Report) {
		if c := a.cl.Load(); c != nil {
			c.Send(opchan.DropReportOp{Report: dropped})
		}
	})
}

// Pause suppresses attribution on the calling goroutine only.
func (a *Allocator) Pause() { reentrant.Disable() }

// Resume re-arms attribution on the calling goroutine.
func (a *Allocator) Resume() { reentrant.Enable() }

// Reset stops the current Collector (draining its channel first) and
// starts a fresh one with the same configuration, discarding all
// previously aggregated state.
func (a *Allocator) Reset() error {
	old := a.cl.Swap(nil)
	if old != nil {
		old.Stop()
	}

	cfgPtr := a.cfg.Load()
	capacity := config.DefaultChannelCapacity
	if cfgPtr != nil {
		capacity = cfgPtr.ChannelCapacity
	}

	cl := collector.Start(capacity)
	a.cl.Store(cl)
	return nil
}

// Stop tears down the Collector goroutine without starting a new one.
// The Allocator reverts to a plain passthrough over inner.
func (a *Allocator) Stop() {
	if old := a.cl.Swap(nil); old != nil {
		old.Stop()
	}
}
