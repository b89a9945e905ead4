// Package config resolves heapprof's environment-driven configuration
// once at Init time, the way profiler.Start resolves and logs its
// options.
package config

import (
	"os"
	"strconv"

	"github.com/heapprof/heapprof/internal/log"
)

const (
	envLogLevel        = "HEAPPROF_LOG_LEVEL"
	envErrorRateSecs   = "HEAPPROF_ERROR_RATE_SECONDS"
	envChannelCapacity = "HEAPPROF_CHANNEL_CAPACITY"

	DefaultChannelCapacity = 1
)

// Config is an immutable snapshot of the HEAPPROF_* environment,
// resolved once by Init and never re-read for the lifetime of an
// Allocator.
//
// The number of frames captured per stack is not part of Config: it is
// capture.MaxDepth, a fixed constant, because capture.Stack's backing
// array is sized by it at compile time to keep Capture allocation-free.
// There is no HEAPPROF_MAX_DEPTH to resolve.
type Config struct {
	LogLevel        log.Level
	ChannelCapacity int
}

// FromEnv resolves a Config from the process environment, falling back to
// defaults for anything unset or unparsable.
func FromEnv() Config {
	c := Config{
		LogLevel:        log.LevelInfo,
		ChannelCapacity: DefaultChannelCapacity,
	}

	if v, ok := lookupInt(envChannelCapacity); ok && v > 0 {
		c.ChannelCapacity = v
	}
	if v, ok := os.LookupEnv(envLogLevel); ok {
		c.LogLevel = parseLevel(v)
	}
	if v, ok := os.LookupEnv(envErrorRateSecs); ok {
		log.ConfigureRate(v)
	}

	return c
}

func lookupInt(name string) (int, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.LevelDebug
	case "info":
		return log.LevelInfo
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

// Apply installs the Config's log level as the package-wide logging
// threshold and announces the resolved configuration at Info level, the
// way profiler.Start logs its resolved options on startup.
func (c Config) Apply() {
	log.SetLevel(c.LogLevel)
	log.Info("heapprof: starting with channel_capacity=%d", c.ChannelCapacity)
}
