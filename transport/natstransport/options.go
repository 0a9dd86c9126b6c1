package natstransport

import (
	"time"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/transport"
	"github.com/c360/ddsbridge/typesupport"
)

// Option is a functional option for configuring the Context
type Option func(*Context) error

// WithLogger sets a custom logger
func WithLogger(logger transport.Logger) Option {
	return func(c *Context) error {
		if logger == nil {
			logger = transport.NopLogger{}
		}
		c.logger = logger
		return nil
	}
}

// WithClientName sets the NATS client name reported to the server
func WithClientName(name string) Option {
	return func(c *Context) error {
		c.clientName = name
		return nil
	}
}

// WithSubjectPrefix overrides the subject namespace shared by all
// participants of one domain
func WithSubjectPrefix(prefix string) Option {
	return func(c *Context) error {
		if prefix == "" {
			return errors.New("subject prefix must not be empty")
		}
		c.subjectPrefix = prefix
		return nil
	}
}

// WithMaxReconnects sets the reconnection attempt limit, -1 for
// unlimited
func WithMaxReconnects(max int) Option {
	return func(c *Context) error {
		c.maxReconnects = max
		return nil
	}
}

// WithReconnectWait sets the wait between reconnection attempts
func WithReconnectWait(d time.Duration) Option {
	return func(c *Context) error {
		c.reconnectWait = d
		return nil
	}
}

// WithPingInterval sets the connection health ping interval
func WithPingInterval(d time.Duration) Option {
	return func(c *Context) error {
		c.pingInterval = d
		return nil
	}
}

// WithConnectTimeout bounds the initial connection attempt
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Context) error {
		c.connectTimeout = d
		return nil
	}
}

// WithCredentials sets username/password authentication
func WithCredentials(username, password string) Option {
	return func(c *Context) error {
		c.username = username
		c.password = password
		return nil
	}
}

// WithToken sets token authentication
func WithToken(token string) Option {
	return func(c *Context) error {
		c.token = token
		return nil
	}
}

// WithTLS sets the client certificate and CA for a TLS connection
func WithTLS(certFile, keyFile, caFile string) Option {
	return func(c *Context) error {
		c.tlsCertFile = certFile
		c.tlsKeyFile = keyFile
		c.tlsCAFile = caFile
		return nil
	}
}

// WithDefaultQueueDepth sets the reader queue depth used when QoS
// leaves history unset
func WithDefaultQueueDepth(depth int) Option {
	return func(c *Context) error {
		if depth <= 0 {
			return errors.New("queue depth must be positive")
		}
		c.defaultDepth = depth
		return nil
	}
}

// WithGUIDPrefix pins the participant GUID prefix, mainly for tests
func WithGUIDPrefix(prefix [12]byte) Option {
	return func(c *Context) error {
		c.prefix = prefix
		return nil
	}
}

// WithShmTopics marks topics eligible for the single-slot fast path.
// The slot is process-local: it accelerates readers in the same
// process while the NATS subjects keep remote participants fed.
func WithShmTopics(topics ...string) Option {
	return func(c *Context) error {
		for _, t := range topics {
			c.shmTopics[typesupport.NormalizeTopic(t)] = true
		}
		return nil
	}
}
