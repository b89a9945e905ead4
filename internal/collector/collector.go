// Package collector runs the single goroutine that owns the live-pointer
// table and the stack→bytes aggregation, consuming Operations posted by
// any number of application goroutines.
package collector

import (
	"sync/atomic"

	"github.com/heapprof/heapprof/internal/capture"
	"github.com/heapprof/heapprof/internal/log"
	"github.com/heapprof/heapprof/internal/opchan"
	"github.com/heapprof/heapprof/internal/reentrant"
	"github.com/heapprof/heapprof/internal/symbol"
	"github.com/heapprof/heapprof/report"
)

type liveAlloc struct {
	stack capture.Stack
	size  int
}

type stackTotal struct {
	stack capture.Stack
	bytes uint64
}

// Stats are anomaly counters incremented only by the Collector goroutine,
// so plain (non-atomic-store) increments inside Collector.run would be
// safe too; they're atomic.Int64 so Stats() can be read from any
// goroutine without racing the collector.
type Stats struct {
	DuplicateAllocs           atomic.Int64
	UnrecordedDeallocs        atomic.Int64
	MissingAggregationEntries atomic.Int64
}

// Snapshot is a point-in-time copy of Stats, safe to compare and print.
type Snapshot struct {
	DuplicateAllocs           int64
	UnrecordedDeallocs        int64
	MissingAggregationEntries int64
}

// Collector owns the live-pointer map and the stack→bytes aggregation.
// Both are touched only from the goroutine started by Start, so neither
// needs a lock.
type Collector struct {
	ch    *opchan.Channel
	stats Stats

	live        map[uintptr]liveAlloc
	aggregation map[string]*stackTotal

	done chan struct{}
}

// Client is the handle the Allocator Shim holds: enough to post
// Operations and to stop the Collector, without exposing its internal
// maps.
type Client struct {
	ch *opchan.Channel
	c  *Collector
}

// Send posts op to the Collector.
func (cl *Client) Send(op opchan.Operation) { cl.ch.Send(op) }

// Stats returns a snapshot of the Collector's anomaly counters.
func (cl *Client) Stats() Snapshot {
	return Snapshot{
		DuplicateAllocs:           cl.c.stats.DuplicateAllocs.Load(),
		UnrecordedDeallocs:        cl.c.stats.UnrecordedDeallocs.Load(),
		MissingAggregationEntries: cl.c.stats.MissingAggregationEntries.Load(),
	}
}

// Stop closes the operation channel and waits for the Collector goroutine
// to drain and exit.
func (cl *Client) Stop() {
	cl.ch.Close()
	<-cl.c.done
}

// Start spawns the Collector goroutine and blocks until it has cleared
// its own reentrancy flag and is ready to consume Operations, so no
// event posted after Start returns can race the consumer coming up.
func Start(capacity int) *Client {
	ch := opchan.New(capacity)
	c := &Collector{
		ch:          ch,
		live:        make(map[uintptr]liveAlloc),
		aggregation: make(map[string]*stackTotal),
		done:        make(chan struct{}),
	}

	ready := make(chan struct{})
	go c.run(ready)
	<-ready

	return &Client{ch: ch, c: c}
}

func (c *Collector) run(ready chan struct{}) {
	reentrant.Disable()
	close(ready)
	defer close(c.done)

	for op := range c.ch.Chan() {
		switch o := op.(type) {
		case opchan.AllocOp:
			c.handleAlloc(o.Addr, o.Size, o.Stack)
		case opchan.DeallocOp:
			c.handleDealloc(o.Addr, o.Stack)
		case opchan.ReportOp:
			o.Reply <- c.buildReport()
		case opchan.DropReportOp:
			// Letting the local reference go out of scope is enough for
			// the GC to reclaim it from this goroutine rather than
			// whichever caller closed the Handle.
			_ = o.Report
		}
	}
}

func (c *Collector) handleAlloc(addr uintptr, size int, s capture.Stack) {
	key := s.Key()
	tot, ok := c.aggregation[key]
	if !ok {
		tot = &stackTotal{stack: s}
		c.aggregation[key] = tot
	}
	tot.bytes += uint64(size)

	if _, dup := c.live[addr]; dup {
		c.stats.DuplicateAllocs.Add(1)
		log.Warn("duplicate allocation recorded for address %#x", addr)
	}
	c.live[addr] = liveAlloc{stack: s, size: size}
}

func (c *Collector) handleDealloc(addr uintptr, deallocStack capture.Stack) {
	la, ok := c.live[addr]
	if !ok {
		c.stats.UnrecordedDeallocs.Add(1)
		log.Warn("unrecorded deallocation for address %#x", addr)
		return
	}
	delete(c.live, addr)

	key := la.stack.Key()
	if tot, ok := c.aggregation[key]; ok {
		tot.bytes -= uint64(la.size)
	} else {
		c.stats.MissingAggregationEntries.Add(1)
		log.Error("missing aggregation entry for stack of address %#x", addr)
	}

	composite := capture.Concat(la.stack, deallocStack)
	ckey := composite.Key()
	c.aggregation[ckey] = &stackTotal{stack: composite, bytes: uint64(la.size)}
}

func (c *Collector) buildReport() *report.Report {
	entries := make([]report.Entry, 0, len(c.aggregation))
	for _, tot := range c.aggregation {
		entries = append(entries, report.Entry{
			Stack: symbol.Resolve(tot.stack),
			Bytes: tot.bytes,
		})
	}
	return report.New(entries)
}
