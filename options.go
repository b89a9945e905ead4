package heapprof

import (
	"github.com/heapprof/heapprof/internal/config"
	"github.com/heapprof/heapprof/internal/log"
)

// Option overrides a single resolved configuration field after it has
// been read from the environment, mirroring the functional-options shape
// used across this ecosystem's client libraries.
type Option func(*config.Config)

// WithChannelCapacity overrides the operation channel's capacity.
func WithChannelCapacity(n int) Option {
	return func(c *config.Config) {
		if n > 0 {
			c.ChannelCapacity = n
		}
	}
}

// WithLogLevel overrides the resolved logging level.
func WithLogLevel(l log.Level) Option {
	return func(c *config.Config) {
		c.LogLevel = l
	}
}
