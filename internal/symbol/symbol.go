// Package symbol resolves capture.Frame program counters into the
// human-readable Symbols a Report renders. Resolution is deferred to
// report time: the hot path only ever handles capture.Frame values.
package symbol

import (
	"runtime"
	"strconv"
	"unicode/utf8"

	"github.com/ianlancetaylor/demangle"

	"github.com/heapprof/heapprof/internal/capture"
)

// Symbol is the resolved projection of a single Frame. A Frame may resolve
// to more than one Symbol when the compiler inlined several functions into
// it; runtime.CallersFrames yields them innermost-first.
type Symbol struct {
	RawName string // empty and HasName=false for frames with no symbol table entry
	HasName bool
	Addr    uintptr
	File    string
	Line    int
}

// Name returns the demangled, display-ready name for the symbol, following
// its exact fallback rules.
func (s Symbol) Name() string {
	if !s.HasName {
		return "Unknown"
	}
	if !utf8.ValidString(s.RawName) {
		return "NonUtf8Name"
	}
	return demangle.Filter(s.RawName)
}

// String renders "name[:file[:line]]".
func (s Symbol) String() string {
	out := s.Name()
	if s.File != "" {
		out += ":" + s.File
		if s.Line > 0 {
			out += ":" + strconv.Itoa(s.Line)
		}
	}
	return out
}

// Equal is raw-name equality; two nameless Symbols are equal (the "unknown"
// class), matching the original's treatment of absent names.
func (s Symbol) Equal(o Symbol) bool {
	if !s.HasName || !o.HasName {
		return s.HasName == o.HasName
	}
	return s.RawName == o.RawName
}

// Group is the set of Symbols a single Frame resolved to, innermost-first.
type Group []Symbol

// ResolvedStack is an ordered sequence of Groups, one per captured Frame.
type ResolvedStack []Group

// Equal lifts Symbol equality elementwise over both dimensions.
func (r ResolvedStack) Equal(o ResolvedStack) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if len(r[i]) != len(o[i]) {
			return false
		}
		for j := range r[i] {
			if !r[i][j].Equal(o[i][j]) {
				return false
			}
		}
	}
	return true
}

// Resolve projects every Frame in s into a Group of Symbols. Each Frame is
// resolved with its own single-element runtime.CallersFrames iterator so
// that every inlined call folded into that Frame by the compiler surfaces
// as one Group, in the unwinder's own innermost-first order, instead of
// being conflated with the next captured Frame's symbols.
func Resolve(s capture.Stack) ResolvedStack {
	out := make(ResolvedStack, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		out = append(out, resolveOne(uintptr(s.Frame(i))))
	}
	return out
}

func resolveOne(pc uintptr) Group {
	var group Group
	frames := runtime.CallersFrames([]uintptr{pc})
	for {
		frame, more := frames.Next()
		group = append(group, symbolFromFrame(frame))
		if !more {
			break
		}
	}
	return group
}

func symbolFromFrame(frame runtime.Frame) Symbol {
	if frame.Function == "" {
		return Symbol{HasName: false}
	}
	return Symbol{
		RawName: frame.Function,
		HasName: true,
		Addr:    frame.PC,
		File:    frame.File,
		Line:    frame.Line,
	}
}
