package rmw

import (
	"sync"
	"sync/atomic"

	"github.com/c360/ddsbridge/codec"
	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/graph"
	"github.com/c360/ddsbridge/metric"
	"github.com/c360/ddsbridge/transport"
	"github.com/c360/ddsbridge/transport/memtransport"
)

// Context is one framework initialization: a transport context, the
// per-context fallback bus, and the set of live nodes.
type Context struct {
	name       string
	instanceID uint64
	enclave    string

	transport     transport.Context
	ownsTransport bool
	logger        transport.Logger
	metrics       *metric.Metrics

	fallbackDepth int
	fallback      *codec.FallbackBus

	gidTail atomic.Uint32

	mu       sync.Mutex
	nodes    map[*Node]bool
	shutdown bool
	finished bool
}

// Init creates a context. Without WithTransport an in-process transport
// is created and owned by the context.
func Init(opts ...Option) (*Context, error) {
	c := &Context{
		name:          "ddsbridge",
		logger:        transport.NopLogger{},
		fallbackDepth: defaultFallbackDepth(),
		nodes:         make(map[*Node]bool),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Context", "Init", "apply option")
		}
	}

	if c.transport == nil {
		tc, err := memtransport.New(c.name)
		if err != nil {
			return nil, errors.Wrap(err, "Context", "Init", "create transport context")
		}
		c.transport = tc
		c.ownsTransport = true
	}

	c.fallback = codec.NewFallbackBus(c.fallbackDepth)
	return c, nil
}

// Name returns the participant name
func (c *Context) Name() string { return c.name }

// InstanceID returns the framework initialization id
func (c *Context) InstanceID() uint64 { return c.instanceID }

// Transport returns the underlying transport context
func (c *Context) Transport() transport.Context { return c.transport }

// Graph returns the process-local graph cache
func (c *Context) Graph() *graph.Cache { return c.transport.Graph() }

// Shutdown marks the context as shutting down. Entities stay valid for
// teardown; waits return empty and new entity creation fails.
func (c *Context) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown || c.finished {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Context", "Shutdown", "check context state")
	}
	c.shutdown = true
	return nil
}

// Fini releases the context. It fails with errors.ErrNodesRemain while
// nodes are still alive.
func (c *Context) Fini() error {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Context", "Fini", "check context state")
	}
	if len(c.nodes) > 0 {
		c.mu.Unlock()
		return errors.WrapInvalid(errors.ErrNodesRemain, "Context", "Fini", "release context")
	}
	c.finished = true
	c.shutdown = true
	c.mu.Unlock()

	c.fallback.Close()
	if c.ownsTransport {
		if err := c.transport.Close(); err != nil {
			return errors.Wrap(err, "Context", "Fini", "close transport context")
		}
	}
	return nil
}

// IsShutdown reports whether Shutdown or Fini ran
func (c *Context) IsShutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdown
}

func (c *Context) checkAlive(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return errors.WrapInvalid(errors.ErrContextShutdown, "Context", method, "check context state")
	}
	return nil
}

// nextGIDTail hands out entity tails unique within the participant
func (c *Context) nextGIDTail() uint32 {
	return c.gidTail.Add(1)
}

func (c *Context) trackNode(n *Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes[n] = true
}

func (c *Context) untrackNode(n *Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.nodes, n)
}

func (c *Context) recordGraphVersion() {
	if c.metrics != nil {
		c.metrics.RecordGraphVersion(c.Graph().Version())
	}
}
