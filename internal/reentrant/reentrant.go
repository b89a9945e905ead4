// Package reentrant implements the profiler's per-goroutine reentrancy
// guard. Go gives packages no goroutine-local storage, so the guard is kept
// in a registry keyed by the calling goroutine's numeric ID, parsed from
// runtime.Stack the way several community goroutine-local-storage packages
// do (e.g. jtolds/gls); no such package appears anywhere in this module's
// reference set, so it is implemented directly against runtime rather than
// pulled in as an invented dependency.
package reentrant

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

var flags sync.Map // int64 goroutine id -> *uint32 (1 = enabled, 0 = disabled)

const (
	disabled uint32 = 0
	enabled  uint32 = 1
)

// goroutineID parses the numeric id out of the header line of
// runtime.Stack(buf, false), e.g. "goroutine 18 [running]:".
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		// Should not happen given the fixed runtime.Stack header format;
		// fall back to a value that can never collide with a real
		// goroutine id so the flag is still self-consistent per call.
		return -1
	}
	return id
}

func flagForCurrentGoroutine() *uint32 {
	id := goroutineID()
	if v, ok := flags.Load(id); ok {
		return v.(*uint32)
	}
	f := new(uint32)
	*f = enabled
	actual, _ := flags.LoadOrStore(id, f)
	return actual.(*uint32)
}

// Enabled reports whether profiling is currently armed for the calling
// goroutine. New goroutines start enabled.
func Enabled() bool {
	return *flagForCurrentGoroutine() == enabled
}

// Disable suppresses profiling for the calling goroutine until Enable is
// called. The Collector's consume loop calls this once at startup and
// never calls Enable, so its own bookkeeping is never recorded.
func Disable() {
	*flagForCurrentGoroutine() = disabled
}

// Enable re-arms profiling for the calling goroutine.
func Enable() {
	*flagForCurrentGoroutine() = enabled
}

// Forget releases the bookkeeping entry for the calling goroutine. Entries
// are not removed when a goroutine exits, so the registry keeps one entry
// for every goroutine that has consulted its flag and not called Forget.
// Tests that spin up many short-lived goroutines call this on exit so the
// registry does not grow with each of them.
func Forget() {
	flags.Delete(goroutineID())
}
