package memtransport

import (
	gocontext "context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/ddsbridge/codec"
	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/graph"
	"github.com/c360/ddsbridge/transport"
	"github.com/c360/ddsbridge/typesupport"
)

// DefaultQueueDepth bounds reader queues when the QoS does not set a
// history depth.
const DefaultQueueDepth = 10

// Context is the in-process transport root. It implements
// transport.Context.
type Context struct {
	name   string
	prefix [12]byte
	logger transport.Logger

	defaultDepth int
	shmTopics    map[string]bool

	graphCache *graph.Cache
	graphGuard *guardCondition

	mu              sync.Mutex
	closed          bool
	hubs            map[string]*topicHub
	guards          map[*guardCondition]bool
	attachSeq       uint64
	attachedReaders map[uint64]transport.Reader
	attachedGuards  map[uint64]transport.GuardCondition
	topicTypes      map[string]*typesupport.TypeSupport
	signal          chan struct{}
}

// New creates an in-process transport context.
func New(name string, opts ...Option) (*Context, error) {
	c := &Context{
		name:            name,
		logger:          transport.NopLogger{},
		defaultDepth:    DefaultQueueDepth,
		shmTopics:       make(map[string]bool),
		graphCache:      graph.NewCache(),
		hubs:            make(map[string]*topicHub),
		guards:          make(map[*guardCondition]bool),
		attachedReaders: make(map[uint64]transport.Reader),
		attachedGuards:  make(map[uint64]transport.GuardCondition),
		topicTypes:      make(map[string]*typesupport.TypeSupport),
		signal:          make(chan struct{}),
	}
	u := uuid.New()
	copy(c.prefix[:], u[:12])

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "memtransport", "New", "apply option")
		}
	}

	c.graphGuard = &guardCondition{ctx: c}
	return c, nil
}

// Name returns the participant name
func (c *Context) Name() string { return c.name }

// GUIDPrefix returns the 12-byte participant identifier
func (c *Context) GUIDPrefix() [12]byte { return c.prefix }

// Graph returns the process-local graph cache
func (c *Context) Graph() *graph.Cache { return c.graphCache }

// notify wakes every waiter by closing and replacing the broadcast
// channel. Callers must hold c.mu.
func (c *Context) notifyLocked() {
	close(c.signal)
	c.signal = make(chan struct{})
}

func (c *Context) notify() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.notifyLocked()
	}
}

func (c *Context) checkOpen(method string) error {
	if c.closed {
		return errors.WrapInvalid(errors.ErrContextShutdown, "memtransport", method, "check context")
	}
	return nil
}

// hub returns the topic hub, creating it on first use. Callers must
// hold c.mu.
func (c *Context) hub(topic string) *topicHub {
	key := typesupport.NormalizeTopic(topic)
	h, ok := c.hubs[key]
	if !ok {
		h = &topicHub{name: key}
		c.hubs[key] = h
	}
	return h
}

// RegisterNode announces a node into the graph
func (c *Context) RegisterNode(info graph.NodeInfo) error {
	if err := c.graphCache.RegisterNode(info); err != nil {
		return err
	}
	c.graphChanged()
	return nil
}

// UnregisterNode removes a node from the graph
func (c *Context) UnregisterNode(name, namespace string) error {
	if err := c.graphCache.UnregisterNode(name, namespace); err != nil {
		return err
	}
	c.graphChanged()
	return nil
}

// RegisterPublisherEndpoint announces a publisher into the graph
func (c *Context) RegisterPublisherEndpoint(info graph.EndpointInfo) error {
	if err := c.graphCache.RegisterPublisher(info); err != nil {
		return err
	}
	c.graphChanged()
	return nil
}

// UnregisterPublisherEndpoint removes a publisher by GID
func (c *Context) UnregisterPublisherEndpoint(gid [16]byte) error {
	if err := c.graphCache.UnregisterPublisher(gid); err != nil {
		return err
	}
	c.graphChanged()
	return nil
}

// RegisterSubscriptionEndpoint announces a subscription into the graph
func (c *Context) RegisterSubscriptionEndpoint(info graph.EndpointInfo) error {
	if err := c.graphCache.RegisterSubscription(info); err != nil {
		return err
	}
	c.graphChanged()
	return nil
}

// UnregisterSubscriptionEndpoint removes a subscription by GID
func (c *Context) UnregisterSubscriptionEndpoint(gid [16]byte) error {
	if err := c.graphCache.UnregisterSubscription(gid); err != nil {
		return err
	}
	c.graphChanged()
	return nil
}

func (c *Context) graphChanged() {
	c.graphGuard.Trigger()
}

// CreateGuardCondition allocates a guard condition owned by this context
func (c *Context) CreateGuardCondition() (transport.GuardCondition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen("CreateGuardCondition"); err != nil {
		return nil, err
	}
	g := &guardCondition{ctx: c}
	c.guards[g] = true
	return g, nil
}

// DestroyGuardCondition releases a guard condition
func (c *Context) DestroyGuardCondition(g transport.GuardCondition) error {
	gc, ok := g.(*guardCondition)
	if !ok || gc.ctx != c {
		return errors.WrapInvalid(errors.ErrIncorrectImplementation,
			"memtransport", "DestroyGuardCondition", "check handle origin")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.guards[gc] {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed,
			"memtransport", "DestroyGuardCondition", "check handle state")
	}
	delete(c.guards, gc)
	return nil
}

// GraphGuardCondition returns the context-wide graph-change guard
func (c *Context) GraphGuardCondition() transport.GuardCondition {
	return c.graphGuard
}

// SetGraphGuard sets or clears the graph-change guard
func (c *Context) SetGraphGuard(triggered bool) {
	if triggered {
		c.graphGuard.Trigger()
	} else {
		c.graphGuard.Reset()
	}
}

// AttachReader adds a reader to the wait aggregate
func (c *Context) AttachReader(r transport.Reader) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen("AttachReader"); err != nil {
		return 0, err
	}
	c.attachSeq++
	c.attachedReaders[c.attachSeq] = r
	return c.attachSeq, nil
}

// DetachReader removes a previously attached reader
func (c *Context) DetachReader(key uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.attachedReaders[key]; !ok {
		return errors.WrapInvalid(errors.ErrNotRegistered,
			"memtransport", "DetachReader", "look up attachment")
	}
	delete(c.attachedReaders, key)
	return nil
}

// AttachGuardCondition adds a guard to the wait aggregate
func (c *Context) AttachGuardCondition(g transport.GuardCondition) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen("AttachGuardCondition"); err != nil {
		return 0, err
	}
	c.attachSeq++
	c.attachedGuards[c.attachSeq] = g
	return c.attachSeq, nil
}

// DetachGuardCondition removes a previously attached guard
func (c *Context) DetachGuardCondition(key uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.attachedGuards[key]; !ok {
		return errors.WrapInvalid(errors.ErrNotRegistered,
			"memtransport", "DetachGuardCondition", "look up attachment")
	}
	delete(c.attachedGuards, key)
	return nil
}

// WaitReaders blocks until a reader has data, an attached guard fires,
// or the timeout expires. timeout < 0 blocks indefinitely, 0 polls.
func (c *Context) WaitReaders(ctx gocontext.Context, timeout time.Duration,
	readers []transport.Reader) (ready []transport.Reader, graphGuard bool, err error) {

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, false, errors.WrapInvalid(errors.ErrContextShutdown,
				"memtransport", "WaitReaders", "check context")
		}

		ready = ready[:0]
		for _, r := range readers {
			if r != nil && r.HasData() {
				ready = append(ready, r)
			}
		}
		guardFired := false
		for _, g := range c.attachedGuards {
			if g.IsTriggered() {
				guardFired = true
				break
			}
		}
		gg := c.graphGuard.IsTriggered()
		sig := c.signal
		c.mu.Unlock()

		if len(ready) > 0 || guardFired || gg {
			return ready, gg, nil
		}
		if timeout == 0 {
			return nil, false, nil
		}

		select {
		case <-ctx.Done():
			return nil, false, errors.WrapInvalid(ctx.Err(),
				"memtransport", "WaitReaders", "wait for condition")
		case <-deadline:
			return nil, false, nil
		case <-sig:
		}
	}
}

// BindTopicType associates a topic with its type support
func (c *Context) BindTopicType(topic string, ts *typesupport.TypeSupport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen("BindTopicType"); err != nil {
		return err
	}
	c.topicTypes[typesupport.NormalizeTopic(topic)] = ts
	return nil
}

// TopicType returns the type support bound to topic, or nil
func (c *Context) TopicType(topic string) *typesupport.TypeSupport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topicTypes[typesupport.NormalizeTopic(topic)]
}

// SerializeMessage encodes msg using the type support's descriptor
func (c *Context) SerializeMessage(ts *typesupport.TypeSupport, msg any) ([]byte, error) {
	return codec.Serialize(ts, msg)
}

// DeserializeMessage decodes data into msg using the type support's
// descriptor
func (c *Context) DeserializeMessage(ts *typesupport.TypeSupport, data []byte, msg any) error {
	return codec.Deserialize(ts, data, msg)
}

// ShmHasData reports whether a shared-memory sample is pending on topic
func (c *Context) ShmHasData(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.hubs[typesupport.NormalizeTopic(topic)]
	return ok && h.shmSlot != nil
}

// ShmTryTake non-blockingly takes a shared-memory sample into buf
func (c *Context) ShmTryTake(topic string, buf []byte) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.hubs[typesupport.NormalizeTopic(topic)]
	if !ok || h.shmSlot == nil {
		return 0, false, nil
	}
	s := h.shmSlot
	if len(buf) < len(s.data) {
		return 0, false, &errors.ShortBufferError{Required: len(s.data)}
	}
	n := copy(buf, s.data)
	h.shmSlot = nil
	return n, true, nil
}

// Close destroys the context and wakes any waiter
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "memtransport", "Close", "check context")
	}
	c.closed = true
	c.notifyLocked()
	c.hubs = map[string]*topicHub{}
	c.attachedReaders = map[uint64]transport.Reader{}
	c.attachedGuards = map[uint64]transport.GuardCondition{}
	return nil
}
