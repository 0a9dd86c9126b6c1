package rmw

import (
	"github.com/c360/ddsbridge/codec"
	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/metric"
	"github.com/c360/ddsbridge/transport"
)

// Option is a functional option for configuring a Context at Init
type Option func(*Context) error

// WithTransport injects an existing transport context. The rmw context
// does not own it: Fini leaves it open for the caller to close.
func WithTransport(tc transport.Context) Option {
	return func(c *Context) error {
		if tc == nil {
			return errors.New("transport context must not be nil")
		}
		c.transport = tc
		c.ownsTransport = false
		return nil
	}
}

// WithName sets the participant name used when the context creates its
// own transport
func WithName(name string) Option {
	return func(c *Context) error {
		c.name = name
		return nil
	}
}

// WithInstanceID tags the context with the framework's numeric
// initialization id
func WithInstanceID(id uint64) Option {
	return func(c *Context) error {
		c.instanceID = id
		return nil
	}
}

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

// WithMetrics wires the middleware metrics. Nil disables recording.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Context) error {
		c.metrics = m
		return nil
	}
}

// WithFallbackDepth bounds the per-topic fallback queues
func WithFallbackDepth(depth int) Option {
	return func(c *Context) error {
		if depth <= 0 {
			return errors.New("fallback depth must be positive")
		}
		c.fallbackDepth = depth
		return nil
	}
}

// WithEnclave sets the security enclave recorded for nodes created
// without their own
func WithEnclave(enclave string) Option {
	return func(c *Context) error {
		c.enclave = enclave
		return nil
	}
}

func defaultFallbackDepth() int {
	return codec.DefaultFallbackDepth
}
