package rmw

import (
	"sync/atomic"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/graph"
	"github.com/c360/ddsbridge/qos"
	"github.com/c360/ddsbridge/transport"
	"github.com/c360/ddsbridge/typesupport"
)

// Client is the caller side of a request-reply pair: a writer on the
// rq/ topic and a reader on the rr/ topic. Its writer GUID plus a
// per-client sequence counter form the correlation key on every
// request it sends.
type Client struct {
	ctx       *Context
	node      *Node
	name      string
	reqTopic  string
	respTopic string
	reqTS     *typesupport.TypeSupport
	respTS    *typesupport.TypeSupport
	profile   qos.Profile

	reqWriter  transport.Writer
	respReader transport.Reader
	gid        GID
	writerGUID [16]byte
	seq        atomic.Int64
	callback   atomic.Pointer[func(count int)]
	registered bool
	destroyed  bool
}

// CreateClient creates the caller side of service name under this node
func (n *Node) CreateClient(name string, reqTS, respTS *typesupport.TypeSupport, profile qos.Profile) (*Client, error) {
	c := n.ctx
	if err := c.checkAlive("CreateClient"); err != nil {
		return nil, err
	}
	if n.destroyed {
		return nil, errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Client", "CreateClient", "check node state")
	}
	if name == "" {
		return nil, errors.WrapInvalid(errors.ErrNotRegistered, "Client", "CreateClient", "validate service name")
	}

	cl := &Client{
		ctx:        c,
		node:       n,
		name:       name,
		reqTopic:   typesupport.ServiceRequestTopic(name),
		respTopic:  typesupport.ServiceResponseTopic(name),
		reqTS:      reqTS,
		respTS:     respTS,
		profile:    profile,
		writerGUID: newWriterGUID(),
	}

	q := translateQoS(profile)
	writer, err := c.transport.CreateWriter(cl.reqTopic, q)
	if err != nil {
		return nil, errors.Wrap(err, "Client", "CreateClient", "create request writer")
	}
	cl.reqWriter = writer

	reader, err := c.transport.CreateReader(cl.respTopic, q)
	if err != nil {
		_ = c.transport.DestroyWriter(writer)
		return nil, errors.Wrap(err, "Client", "CreateClient", "create response reader")
	}
	cl.respReader = reader

	cl.gid = newGID(c.transport.GUIDPrefix(), c.nextGIDTail())
	if err := cl.register(); err != nil {
		_ = c.transport.DestroyReader(reader)
		_ = c.transport.DestroyWriter(writer)
		return nil, err
	}
	cl.registered = true
	n.trackClient(cl)
	c.recordGraphVersion()
	return cl, nil
}

// register mirrors Service.register from the caller side: a publisher
// on the request topic and a subscription on the response topic.
func (cl *Client) register() error {
	c := cl.ctx
	pub := graph.EndpointInfo{
		NodeName:      cl.node.name,
		NodeNamespace: cl.node.namespace,
		Topic:         cl.reqTopic,
		TypeName:      cl.reqTS.TypeName(),
		GID:           [16]byte(cl.gid),
		Profile:       cl.profile,
	}
	if err := c.transport.RegisterPublisherEndpoint(pub); err != nil {
		return errors.Wrap(err, "Client", "CreateClient", "register request endpoint")
	}
	sub := graph.EndpointInfo{
		NodeName:      cl.node.name,
		NodeNamespace: cl.node.namespace,
		Topic:         cl.respTopic,
		TypeName:      cl.respTS.TypeName(),
		GID:           responseGID(cl.gid),
		Profile:       cl.profile,
	}
	if err := c.transport.RegisterSubscriptionEndpoint(sub); err != nil {
		_ = c.transport.UnregisterPublisherEndpoint([16]byte(cl.gid))
		return errors.Wrap(err, "Client", "CreateClient", "register response endpoint")
	}
	return nil
}

// Destroy tears the client down in reverse creation order
func (cl *Client) Destroy() error {
	if cl.destroyed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Client", "Destroy", "check client state")
	}
	c := cl.ctx
	if cl.registered {
		_ = c.transport.UnregisterSubscriptionEndpoint(responseGID(cl.gid))
		_ = c.transport.UnregisterPublisherEndpoint([16]byte(cl.gid))
		cl.registered = false
	}
	cl.node.untrackClient(cl)
	cl.destroyed = true
	c.recordGraphVersion()

	err := c.transport.DestroyReader(cl.respReader)
	if werr := c.transport.DestroyWriter(cl.reqWriter); err == nil {
		err = werr
	}
	if err != nil {
		return errors.Wrap(err, "Client", "Destroy", "destroy transport endpoints")
	}
	return nil
}

// Name returns the service name this client calls
func (cl *Client) Name() string { return cl.name }

// SetCallback installs fn to be invoked by wait sets when this client
// has a response ready. A nil fn clears it.
func (cl *Client) SetCallback(fn func(count int)) {
	if fn == nil {
		cl.callback.Store(nil)
		return
	}
	cl.callback.Store(&fn)
}

// WriterGUID returns the correlation GUID stamped on every request
func (cl *Client) WriterGUID() [16]byte { return cl.writerGUID }

// nextSequence pre-increments the per-client counter. Zero is the
// unused-sentinel on the wire, so a wrapped counter skips it.
func (cl *Client) nextSequence() int64 {
	s := cl.seq.Add(1)
	if s == 0 {
		s = cl.seq.Add(1)
	}
	return s
}

// SendRequest serializes req and writes it with a fresh correlation
// header. The returned sequence number identifies the request; the
// matching response echoes it back.
func (cl *Client) SendRequest(req any) (int64, error) {
	if cl.destroyed {
		return 0, errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Client", "SendRequest", "check client state")
	}
	payload, err := cl.ctx.transport.SerializeMessage(cl.reqTS, req)
	if err != nil {
		return 0, errors.Wrap(err, "Client", "SendRequest", "serialize request payload")
	}
	id := RequestID{WriterGUID: cl.writerGUID, Sequence: cl.nextSequence()}
	if err := cl.reqWriter.Write(encodeRequestHeader(id, payload)); err != nil {
		return 0, errors.WrapTransient(err, "Client", "SendRequest", "write request sample")
	}
	cl.ctx.transport.SetGraphGuard(true)
	if cl.ctx.metrics != nil {
		cl.ctx.metrics.RecordServiceExchange(cl.name, "request")
	}
	return id.Sequence, nil
}

// TakeResponse polls for one response, decoding its payload into resp.
// The returned RequestID carries the sequence number of the request it
// answers; matching responses to outstanding requests is the caller's
// job.
func (cl *Client) TakeResponse(resp any) (RequestID, bool, error) {
	var id RequestID
	if cl.destroyed {
		return id, false, errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Client", "TakeResponse", "check client state")
	}
	data, found, err := takeGrown(cl.respReader)
	if err != nil {
		return id, false, errors.WrapTransient(err, "Client", "TakeResponse", "take response sample")
	}
	if !found {
		return id, false, nil
	}
	id, payload, err := decodeRequestHeader(data)
	if err != nil {
		return RequestID{}, false, err
	}
	if err := cl.ctx.transport.DeserializeMessage(cl.respTS, payload, resp); err != nil {
		return RequestID{}, false, errors.Wrap(err, "Client", "TakeResponse", "decode response payload")
	}
	if cl.ctx.metrics != nil {
		cl.ctx.metrics.RecordServiceExchange(cl.name, "response")
	}
	return id, true, nil
}

// ServerIsAvailable reports whether a server answers this service: the
// graph must show a subscription on the request topic and a publisher
// on the response topic. The client's own entries are a request
// publisher and a response subscription, so they never satisfy the
// probe.
func (cl *Client) ServerIsAvailable() bool {
	g := cl.ctx.Graph()
	return g.CountSubscriptions(cl.reqTopic) > 0 && g.CountPublishers(cl.respTopic) > 0
}
