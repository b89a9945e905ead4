// Package log is heapprof's internal logging facility: a small, leveled,
// rate-limited logger with a pluggable backend, used to record the
// anomalies the Collector and Shim tolerate without aborting.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Level gates which severities are emitted.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelThreshold = LevelInfo

// SetLevel changes the minimum level that is logged.
func SetLevel(l Level) { levelThreshold = l }

// DebugEnabled reports whether Debug messages are currently logged.
func DebugEnabled() bool { return levelThreshold <= LevelDebug }

// Logger is the pluggable logging backend. Log receives one fully formatted
// line, without a trailing newline.
type Logger interface {
	Log(msg string)
}

type stderrLogger struct{}

func (stderrLogger) Log(msg string) { fmt.Fprintln(os.Stderr, msg) }

// DiscardLogger throws away every message; tests use it to keep output
// clean.
type DiscardLogger struct{}

func (DiscardLogger) Log(string) {}

// RecordLogger buffers logged lines for assertions in tests.
type RecordLogger struct {
	mu      sync.Mutex
	lines   []string
	ignored []string
}

func (r *RecordLogger) Log(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, substr := range r.ignored {
		if containsSubstr(msg, substr) {
			return
		}
	}
	r.lines = append(r.lines, msg)
}

// Ignore drops any future message containing substr.
func (r *RecordLogger) Ignore(substr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ignored = append(r.ignored, substr)
}

// Logs returns the buffered lines.
func (r *RecordLogger) Logs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Reset clears the buffer.
func (r *RecordLogger) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = r.lines[:0]
}

func containsSubstr(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

var (
	mu     sync.Mutex
	logger Logger = stderrLogger{}
)

// UseLogger installs l as the active logger and returns a function that
// restores whatever logger was previously active.
func UseLogger(l Logger) func() {
	mu.Lock()
	prev := logger
	logger = l
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}

func activeLogger() Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

const prefixMsg = "heapprof"

func msg(lvl, m string) string {
	return fmt.Sprintf("%s %s: %s", prefixMsg, lvl, m)
}

// Debug logs at LevelDebug.
func Debug(format string, args ...interface{}) {
	if !DebugEnabled() {
		return
	}
	activeLogger().Log(msg("DEBUG", fmt.Sprintf(format, args...)))
}

// Info logs at LevelInfo.
func Info(format string, args ...interface{}) {
	if levelThreshold > LevelInfo {
		return
	}
	activeLogger().Log(msg("INFO", fmt.Sprintf(format, args...)))
}

// Warn logs at LevelWarn. Anomalies that don't warrant rate limiting (the
// single-shot ones, e.g. a duplicate alloc) go through Warn.
func Warn(format string, args ...interface{}) {
	if levelThreshold > LevelWarn {
		return
	}
	activeLogger().Log(msg("WARN", fmt.Sprintf(format, args...)))
}

// --- Error: rate-limited, deduplicated by format string ---

const defaultErrorLimit = 200

var (
	errrate    = time.Minute
	errMu      sync.Mutex
	errEntries = map[string]*errEntry{}
	errTimer   *time.Timer
)

type errEntry struct {
	first string
	count int
}

// Error logs at LevelError. Repeated errors sharing the same format string
// within the current errrate window are coalesced into one line at Flush
// time, so a hot path that starts erroring doesn't flood the log.
func Error(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)

	errMu.Lock()
	if errrate <= 0 {
		errMu.Unlock()
		activeLogger().Log(msg("ERROR", line))
		return
	}

	e, ok := errEntries[format]
	if !ok {
		e = &errEntry{first: line}
		errEntries[format] = e
		if errTimer == nil {
			errTimer = time.AfterFunc(errrate, Flush)
		}
	}
	e.count++
	errMu.Unlock()
}

// Flush emits and clears any buffered Error messages.
func Flush() {
	errMu.Lock()
	entries := errEntries
	errEntries = map[string]*errEntry{}
	if errTimer != nil {
		errTimer.Stop()
		errTimer = nil
	}
	errMu.Unlock()

	l := activeLogger()
	for _, e := range entries {
		additional := e.count - 1
		switch {
		case additional <= 0:
			l.Log(msg("ERROR", e.first))
		case additional >= defaultErrorLimit:
			l.Log(msg("ERROR", fmt.Sprintf("%s, %d+ additional messages skipped", e.first, defaultErrorLimit)))
		default:
			l.Log(msg("ERROR", fmt.Sprintf("%s, %d additional messages skipped", e.first, additional)))
		}
	}
}

// ConfigureRate parses a HEAPPROF_ERROR_RATE_SECONDS-style env value
// (seconds) and installs it as the Error dedup/flush window.
func ConfigureRate(s string) {
	setLoggingRate(s)
}

// setLoggingRate parses a HEAPPROF_ERROR_RATE_SECONDS-style env value (seconds) into
// errrate, falling back to the one-minute default on anything invalid.
func setLoggingRate(s string) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		errrate = time.Minute
		return
	}
	errrate = time.Duration(v) * time.Second
}

// --- file-backed logger ---

// LoggerFile is the filename OpenFileAtPath writes into.
const LoggerFile = "heapprof.log"

// File is a Logger backed by an append-only file on disk.
type File struct {
	mu     sync.Mutex
	file   *os.File
	closed bool
}

// OpenFileAtPath opens (creating if needed) LoggerFile inside dir, installs
// it as the active Logger, and returns a handle for closing it later. dir
// must already exist.
func OpenFileAtPath(dir string) (*File, error) {
	f, err := os.OpenFile(filepath.Join(dir, LoggerFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	lf := &File{file: f}
	UseLogger(lf)
	return lf, nil
}

// Log implements Logger.
func (f *File) Log(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	fmt.Fprintln(f.file, msg)
}

// Close closes the underlying file. Safe to call concurrently and more
// than once.
func (f *File) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.file.Close()
}
