// Package report holds the immutable snapshot the Collector produces on
// demand: a resolved stack→bytes aggregation, plus its two renderings
// (plain text and flamegraph collapsed-stack input).
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/heapprof/heapprof/internal/symbol"
)

// Entry is one resolved stack and its live byte total.
type Entry struct {
	Stack symbol.ResolvedStack
	Bytes uint64
}

// Report is an immutable snapshot of the stack→bytes aggregation, resolved
// once at construction time. Entries preserves insertion order so
// text/flamegraph output is deterministic for a given resolution pass.
type Report struct {
	entries []Entry
}

// New builds a Report from already-resolved entries.
func New(entries []Entry) *Report {
	return &Report{entries: entries}
}

// Entries returns the Report's entries in construction order.
func (r *Report) Entries() []Entry {
	return r.entries
}

// Len reports the number of distinct stacks in the Report.
func (r *Report) Len() int {
	return len(r.entries)
}

// String renders the Report as "<ResolvedStack> <bytes>" lines.
func (r *Report) String() string {
	var b strings.Builder
	_ = r.WriteText(&b)
	return b.String()
}

// WriteText writes one "<ResolvedStack> <bytes>" line per entry.
func (r *Report) WriteText(w io.Writer) error {
	for _, e := range r.entries {
		if _, err := fmt.Fprintf(w, "%s %d\n", renderStack(e.Stack), e.Bytes); err != nil {
			return err
		}
	}
	return nil
}

func renderStack(s symbol.ResolvedStack) string {
	var b strings.Builder
	for _, group := range s {
		b.WriteString("FRAME: ")
		for _, sym := range group {
			b.WriteString(sym.String())
			b.WriteString(" -> ")
		}
	}
	return b.String()
}

// WriteFlamegraph writes the flamegraph collapsed-stack input described in
// one line per non-empty entry, "outer;...;inner bytes", frames
// outermost-first (the reverse of the stack's innermost-first capture
// order), groups of inlined symbols within a frame joined by "/". The
// leading comment lines encode the {hash=true, count_name="bytes"} options
// the way the reference collapsed-stack readers (Brendan Gregg's
// FlameGraph.pl, inferno) already recognize pragma comments.
func (r *Report) WriteFlamegraph(w io.Writer) error {
	if len(r.entries) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, "# hash=true\n# count_name=bytes\n"); err != nil {
		return err
	}
	for _, e := range r.entries {
		line := flamegraphLine(e)
		if line == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s %d\n", line, e.Bytes); err != nil {
			return err
		}
	}
	return nil
}

func flamegraphLine(e Entry) string {
	frames := make([]string, 0, len(e.Stack))
	for i := len(e.Stack) - 1; i >= 0; i-- {
		group := e.Stack[i]
		if len(group) == 0 {
			continue
		}
		syms := make([]string, 0, len(group))
		for j := len(group) - 1; j >= 0; j-- {
			syms = append(syms, group[j].String())
		}
		frames = append(frames, strings.Join(syms, "/"))
	}
	return strings.Join(frames, ";")
}

// Handle is the caller-owned, read-only view of a Report returned by
// heapprof's Allocator.Report(). Closing it ships the Report back to the Collector
// goroutine for teardown instead of freeing its (possibly large) maps on
// whatever goroutine happens to be holding the Handle, which may itself be
// inside a profiled allocation path.
type Handle struct {
	report  *Report
	onClose func(*Report)
	closed  bool
}

// NewHandle wraps r; onClose is invoked exactly once, on Close.
func NewHandle(r *Report, onClose func(*Report)) *Handle {
	return &Handle{report: r, onClose: onClose}
}

// Report returns the wrapped Report.
func (h *Handle) Report() *Report {
	return h.report
}

// Close returns the Report to the Collector for drop. Calling Close more
// than once is a no-op.
func (h *Handle) Close() {
	if h.closed {
		return
	}
	h.closed = true
	if h.onClose != nil {
		h.onClose(h.report)
	}
}
