package memtransport

import (
	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/transport"
	"github.com/c360/ddsbridge/typesupport"
)

// Option is a functional option for configuring the Context
type Option func(*Context) error

// WithLogger sets a custom logger for the context
func WithLogger(logger transport.Logger) Option {
	return func(c *Context) error {
		if logger == nil {
			logger = transport.NopLogger{}
		}
		c.logger = logger
		return nil
	}
}

// WithDefaultQueueDepth sets the reader queue depth used when a QoS
// carries no history depth
func WithDefaultQueueDepth(depth int) Option {
	return func(c *Context) error {
		if depth <= 0 {
			return errors.New("queue depth must be positive")
		}
		c.defaultDepth = depth
		return nil
	}
}

// WithShmTopics enables the shared-memory fast path for the given
// topics. Writers on these topics deposit each sample into a
// single-slot buffer that ShmTryTake drains.
func WithShmTopics(topics ...string) Option {
	return func(c *Context) error {
		for _, t := range topics {
			c.shmTopics[typesupport.NormalizeTopic(t)] = true
		}
		return nil
	}
}

// WithGUIDPrefix pins the participant identifier, mainly for tests
func WithGUIDPrefix(prefix [12]byte) Option {
	return func(c *Context) error {
		c.prefix = prefix
		return nil
	}
}
