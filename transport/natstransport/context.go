package natstransport

import (
	gocontext "context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/c360/ddsbridge/codec"
	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/graph"
	"github.com/c360/ddsbridge/pkg/tlsutil"
	"github.com/c360/ddsbridge/transport"
	"github.com/c360/ddsbridge/typesupport"
)

// DefaultSubjectPrefix namespaces all bridge subjects on a server
const DefaultSubjectPrefix = "ddsbridge"

const (
	defaultQueueDepth     = 16
	defaultReconnectWait  = 2 * time.Second
	defaultPingInterval   = 30 * time.Second
	defaultConnectTimeout = 5 * time.Second

	// hdrSourceTimestamp carries the write time in Unix milliseconds
	hdrSourceTimestamp = "Ddsb-Source-Ts"
)

// Context is a NATS-backed transport participant.
type Context struct {
	name   string
	prefix [12]byte
	origin string
	logger transport.Logger

	clientName     string
	subjectPrefix  string
	maxReconnects  int
	reconnectWait  time.Duration
	pingInterval   time.Duration
	connectTimeout time.Duration
	username       string
	password       string
	token          string
	tlsCertFile    string
	tlsKeyFile     string
	tlsCAFile      string
	defaultDepth   int

	conn     *nats.Conn
	graphSub *nats.Subscription

	graphCache *graph.Cache
	graphGuard *guardCondition

	reconnects atomic.Int32

	mu              sync.Mutex
	closed          bool
	readers         map[*natsReader]bool
	shmTopics       map[string]bool
	shmSlots        map[string][]byte
	attachSeq       uint64
	attachedReaders map[uint64]transport.Reader
	attachedGuards  map[uint64]transport.GuardCondition
	topicTypes      map[string]*typesupport.TypeSupport
	signal          chan struct{}
}

// New connects to a NATS server and joins the bridge domain on it.
// name is the participant name used in logs and as the default client
// name.
func New(url, name string, opts ...Option) (*Context, error) {
	c := &Context{
		name:            name,
		origin:          uuid.NewString(),
		logger:          transport.NopLogger{},
		clientName:      name,
		subjectPrefix:   DefaultSubjectPrefix,
		maxReconnects:   -1,
		reconnectWait:   defaultReconnectWait,
		pingInterval:    defaultPingInterval,
		connectTimeout:  defaultConnectTimeout,
		defaultDepth:    defaultQueueDepth,
		graphCache:      graph.NewCache(),
		readers:         make(map[*natsReader]bool),
		shmTopics:       make(map[string]bool),
		shmSlots:        make(map[string][]byte),
		attachedReaders: make(map[uint64]transport.Reader),
		attachedGuards:  make(map[uint64]transport.GuardCondition),
		topicTypes:      make(map[string]*typesupport.TypeSupport),
		signal:          make(chan struct{}),
	}
	u := uuid.New()
	copy(c.prefix[:], u[:12])
	c.graphGuard = &guardCondition{ctx: c}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "natstransport", "New", "apply option")
		}
	}

	if err := c.connect(url); err != nil {
		return nil, err
	}
	if err := c.subscribeGraph(); err != nil {
		c.conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Context) connect(url string) error {
	natsOpts := []nats.Option{
		nats.Name(c.clientName),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.connectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.logger.Errorf("disconnected from NATS: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.reconnects.Add(1)
			c.logger.Printf("reconnected to NATS at %s", nc.ConnectedUrl())
			c.notify()
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.logger.Debugf("NATS connection closed")
		}),
	}
	if c.username != "" {
		natsOpts = append(natsOpts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		natsOpts = append(natsOpts, nats.Token(c.token))
	}
	if c.tlsCertFile != "" || c.tlsCAFile != "" {
		tlsConfig, err := tlsutil.LoadClientConfig(tlsutil.ClientConfig{
			CertFile: c.tlsCertFile,
			KeyFile:  c.tlsKeyFile,
			CAFile:   c.tlsCAFile,
		})
		if err != nil {
			return errors.Wrap(err, "natstransport", "New", "load TLS configuration")
		}
		natsOpts = append(natsOpts, nats.Secure(tlsConfig))
	}

	conn, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return errors.WrapTransient(err, "natstransport", "New", "connect to NATS")
	}
	c.conn = conn
	c.logger.Printf("participant %s connected to NATS at %s", c.name, conn.ConnectedUrl())
	return nil
}

// notify wakes every blocked wait by replacing the broadcast channel
func (c *Context) notify() {
	c.mu.Lock()
	c.notifyLocked()
	c.mu.Unlock()
}

func (c *Context) notifyLocked() {
	close(c.signal)
	c.signal = make(chan struct{})
}

func (c *Context) checkOpen(method string) error {
	if c.closed {
		return errors.WrapInvalid(errors.ErrContextShutdown, "natstransport", method, "check context")
	}
	return nil
}

// Name returns the participant name
func (c *Context) Name() string { return c.name }

// GUIDPrefix returns the participant's 12-byte GUID prefix
func (c *Context) GUIDPrefix() [12]byte { return c.prefix }

// Graph returns the local graph cache
func (c *Context) Graph() *graph.Cache { return c.graphCache }

// Status reports connection health for monitors
func (c *Context) Status() (connected bool, reconnects int32) {
	return c.conn != nil && c.conn.IsConnected(), c.reconnects.Load()
}

// dataSubject maps a topic onto the domain's data subject space
func (c *Context) dataSubject(topic string) string {
	t := strings.ReplaceAll(typesupport.NormalizeTopic(topic), "/", ".")
	return c.subjectPrefix + ".data." + t
}

func (c *Context) graphSubject() string {
	return c.subjectPrefix + ".graph"
}

// RegisterNode applies the registration locally and announces it
func (c *Context) RegisterNode(info graph.NodeInfo) error {
	c.mu.Lock()
	if err := c.checkOpen("RegisterNode"); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	if err := c.graphCache.RegisterNode(info); err != nil {
		return err
	}
	c.graphGuard.Trigger()
	return c.announce(announcement{Op: opNodeUp, Node: &info})
}

// UnregisterNode removes the node locally and announces the removal
func (c *Context) UnregisterNode(name, namespace string) error {
	if err := c.graphCache.UnregisterNode(name, namespace); err != nil {
		return err
	}
	c.graphGuard.Trigger()
	return c.announce(announcement{Op: opNodeDown, Node: &graph.NodeInfo{Name: name, Namespace: namespace}})
}

// RegisterPublisherEndpoint registers and announces a publisher record
func (c *Context) RegisterPublisherEndpoint(info graph.EndpointInfo) error {
	if err := c.graphCache.RegisterPublisher(info); err != nil {
		return err
	}
	c.graphGuard.Trigger()
	return c.announce(newEndpointAnnouncement(opPubUp, info))
}

// UnregisterPublisherEndpoint removes and announces a publisher record
func (c *Context) UnregisterPublisherEndpoint(gid [16]byte) error {
	if err := c.graphCache.UnregisterPublisher(gid); err != nil {
		return err
	}
	c.graphGuard.Trigger()
	return c.announce(newGIDAnnouncement(opPubDown, gid))
}

// RegisterSubscriptionEndpoint registers and announces a subscription
// record
func (c *Context) RegisterSubscriptionEndpoint(info graph.EndpointInfo) error {
	if err := c.graphCache.RegisterSubscription(info); err != nil {
		return err
	}
	c.graphGuard.Trigger()
	return c.announce(newEndpointAnnouncement(opSubUp, info))
}

// UnregisterSubscriptionEndpoint removes and announces a subscription
// record
func (c *Context) UnregisterSubscriptionEndpoint(gid [16]byte) error {
	if err := c.graphCache.UnregisterSubscription(gid); err != nil {
		return err
	}
	c.graphGuard.Trigger()
	return c.announce(newGIDAnnouncement(opSubDown, gid))
}

// CreateGuardCondition allocates a local guard condition
func (c *Context) CreateGuardCondition() (transport.GuardCondition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen("CreateGuardCondition"); err != nil {
		return nil, err
	}
	return &guardCondition{ctx: c}, nil
}

// DestroyGuardCondition releases a guard condition
func (c *Context) DestroyGuardCondition(g transport.GuardCondition) error {
	gc, ok := g.(*guardCondition)
	if !ok || gc.ctx != c {
		return errors.WrapInvalid(errors.ErrIncorrectImplementation, "natstransport", "DestroyGuardCondition", "check guard handle")
	}
	if gc.destroyed.Swap(true) {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "natstransport", "DestroyGuardCondition", "check guard state")
	}
	return nil
}

// GraphGuardCondition returns the graph-change guard
func (c *Context) GraphGuardCondition() transport.GuardCondition { return c.graphGuard }

// SetGraphGuard sets or clears the graph-change guard
func (c *Context) SetGraphGuard(triggered bool) {
	if triggered {
		c.graphGuard.Trigger()
		return
	}
	c.graphGuard.Reset()
}

// AttachReader registers a reader as a wakeup source, returning a
// detach key
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

// DetachReader removes an attached reader by key
func (c *Context) DetachReader(key uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.attachedReaders[key]; !ok {
		return errors.WrapInvalid(errors.ErrNotRegistered, "natstransport", "DetachReader", "look up attachment")
	}
	delete(c.attachedReaders, key)
	return nil
}

// AttachGuardCondition registers a guard as a wakeup source
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

// DetachGuardCondition removes an attached guard by key
func (c *Context) DetachGuardCondition(key uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.attachedGuards[key]; !ok {
		return errors.WrapInvalid(errors.ErrNotRegistered, "natstransport", "DetachGuardCondition", "look up attachment")
	}
	delete(c.attachedGuards, key)
	return nil
}

// WaitReaders blocks until a reader has data, an attached guard or the
// graph guard fires, the timeout elapses, or ctx is canceled. A zero
// timeout polls once; a negative timeout waits indefinitely.
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
				"natstransport", "WaitReaders", "check context")
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
				"natstransport", "WaitReaders", "wait for condition")
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

// ShmHasData reports whether a process-local slot sample is pending
func (c *Context) ShmHasData(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.shmSlots[typesupport.NormalizeTopic(topic)]
	return ok
}

// ShmTryTake non-blockingly takes a slot sample into buf
func (c *Context) ShmTryTake(topic string, buf []byte) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := typesupport.NormalizeTopic(topic)
	data, ok := c.shmSlots[key]
	if !ok {
		return 0, false, nil
	}
	if len(buf) < len(data) {
		return 0, false, &errors.ShortBufferError{Required: len(data)}
	}
	n := copy(buf, data)
	delete(c.shmSlots, key)
	return n, true, nil
}

// Close drains the NATS connection and invalidates the context
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "natstransport", "Close", "check context")
	}
	c.closed = true
	c.notifyLocked()
	c.mu.Unlock()

	if c.graphSub != nil {
		_ = c.graphSub.Unsubscribe()
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return errors.Wrap(err, "natstransport", "Close", "drain connection")
	}
	return nil
}
