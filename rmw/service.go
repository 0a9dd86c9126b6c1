package rmw

import (
	"sync/atomic"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/graph"
	"github.com/c360/ddsbridge/qos"
	"github.com/c360/ddsbridge/transport"
	"github.com/c360/ddsbridge/typesupport"
)

// Service is the server side of a request-reply pair: a reader on the
// rq/ topic and a writer on the rr/ topic. Every sample on either
// carries the correlation header, so the request type support decodes
// only the payload after it.
type Service struct {
	ctx       *Context
	node      *Node
	name      string
	reqTopic  string
	respTopic string
	reqTS     *typesupport.TypeSupport
	respTS    *typesupport.TypeSupport
	profile   qos.Profile

	reqReader  transport.Reader
	respWriter transport.Writer
	gid        GID
	callback   atomic.Pointer[func(count int)]
	registered bool
	destroyed  bool
}

// CreateService creates the server side of service name under this
// node. reqTS and respTS describe the request and response payloads.
func (n *Node) CreateService(name string, reqTS, respTS *typesupport.TypeSupport, profile qos.Profile) (*Service, error) {
	c := n.ctx
	if err := c.checkAlive("CreateService"); err != nil {
		return nil, err
	}
	if n.destroyed {
		return nil, errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Service", "CreateService", "check node state")
	}
	if name == "" {
		return nil, errors.WrapInvalid(errors.ErrNotRegistered, "Service", "CreateService", "validate service name")
	}

	s := &Service{
		ctx:       c,
		node:      n,
		name:      name,
		reqTopic:  typesupport.ServiceRequestTopic(name),
		respTopic: typesupport.ServiceResponseTopic(name),
		reqTS:     reqTS,
		respTS:    respTS,
		profile:   profile,
	}

	q := translateQoS(profile)
	reader, err := c.transport.CreateReader(s.reqTopic, q)
	if err != nil {
		return nil, errors.Wrap(err, "Service", "CreateService", "create request reader")
	}
	s.reqReader = reader

	writer, err := c.transport.CreateWriter(s.respTopic, q)
	if err != nil {
		_ = c.transport.DestroyReader(reader)
		return nil, errors.Wrap(err, "Service", "CreateService", "create response writer")
	}
	s.respWriter = writer

	s.gid = newGID(c.transport.GUIDPrefix(), c.nextGIDTail())
	if err := s.register(); err != nil {
		_ = c.transport.DestroyWriter(writer)
		_ = c.transport.DestroyReader(reader)
		return nil, err
	}
	s.registered = true
	n.trackService(s)
	c.recordGraphVersion()
	return s, nil
}

// register announces the service's two endpoints in the graph: a
// subscription on the request topic and a publisher on the response
// topic. Clients probe exactly these to decide the server is up.
func (s *Service) register() error {
	c := s.ctx
	sub := graph.EndpointInfo{
		NodeName:      s.node.name,
		NodeNamespace: s.node.namespace,
		Topic:         s.reqTopic,
		TypeName:      s.reqTS.TypeName(),
		GID:           [16]byte(s.gid),
		Profile:       s.profile,
	}
	if err := c.transport.RegisterSubscriptionEndpoint(sub); err != nil {
		return errors.Wrap(err, "Service", "CreateService", "register request endpoint")
	}
	pub := graph.EndpointInfo{
		NodeName:      s.node.name,
		NodeNamespace: s.node.namespace,
		Topic:         s.respTopic,
		TypeName:      s.respTS.TypeName(),
		GID:           responseGID(s.gid),
		Profile:       s.profile,
	}
	if err := c.transport.RegisterPublisherEndpoint(pub); err != nil {
		_ = c.transport.UnregisterSubscriptionEndpoint([16]byte(s.gid))
		return errors.Wrap(err, "Service", "CreateService", "register response endpoint")
	}
	return nil
}

// responseGID derives the second graph id a request-reply endpoint
// occupies by flipping the top bit of the GID tail.
func responseGID(g GID) [16]byte {
	out := [16]byte(g)
	out[15] ^= 0x80
	return out
}

// Destroy tears the service down in reverse creation order
func (s *Service) Destroy() error {
	if s.destroyed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Service", "Destroy", "check service state")
	}
	c := s.ctx
	if s.registered {
		_ = c.transport.UnregisterPublisherEndpoint(responseGID(s.gid))
		_ = c.transport.UnregisterSubscriptionEndpoint([16]byte(s.gid))
		s.registered = false
	}
	s.node.untrackService(s)
	s.destroyed = true
	c.recordGraphVersion()

	err := c.transport.DestroyWriter(s.respWriter)
	if rerr := c.transport.DestroyReader(s.reqReader); err == nil {
		err = rerr
	}
	if err != nil {
		return errors.Wrap(err, "Service", "Destroy", "destroy transport endpoints")
	}
	return nil
}

// Name returns the service name
func (s *Service) Name() string { return s.name }

// SetCallback installs fn to be invoked by wait sets when this service
// has a request ready. A nil fn clears it.
func (s *Service) SetCallback(fn func(count int)) {
	if fn == nil {
		s.callback.Store(nil)
		return
	}
	s.callback.Store(&fn)
}

// TakeRequest polls for one request, decoding its payload into req.
// The returned RequestID must be echoed back verbatim in SendResponse
// for the client to correlate the reply.
func (s *Service) TakeRequest(req any) (RequestID, bool, error) {
	var id RequestID
	if s.destroyed {
		return id, false, errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Service", "TakeRequest", "check service state")
	}
	data, found, err := takeGrown(s.reqReader)
	if err != nil {
		return id, false, errors.WrapTransient(err, "Service", "TakeRequest", "take request sample")
	}
	if !found {
		return id, false, nil
	}
	id, payload, err := decodeRequestHeader(data)
	if err != nil {
		return RequestID{}, false, err
	}
	if err := s.ctx.transport.DeserializeMessage(s.reqTS, payload, req); err != nil {
		return RequestID{}, false, errors.Wrap(err, "Service", "TakeRequest", "decode request payload")
	}
	if s.ctx.metrics != nil {
		s.ctx.metrics.RecordServiceExchange(s.name, "request")
	}
	return id, true, nil
}

// SendResponse serializes resp and writes it with id's correlation
// header prepended. A zero id is rejected before anything hits the
// wire.
func (s *Service) SendResponse(id RequestID, resp any) error {
	if s.destroyed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Service", "SendResponse", "check service state")
	}
	if id.IsZero() || id.Sequence <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidRequestID, "Service", "SendResponse", "validate request id")
	}
	payload, err := s.ctx.transport.SerializeMessage(s.respTS, resp)
	if err != nil {
		return errors.Wrap(err, "Service", "SendResponse", "serialize response payload")
	}
	if err := s.respWriter.Write(encodeRequestHeader(id, payload)); err != nil {
		return errors.WrapTransient(err, "Service", "SendResponse", "write response sample")
	}
	s.ctx.transport.SetGraphGuard(true)
	if s.ctx.metrics != nil {
		s.ctx.metrics.RecordServiceExchange(s.name, "response")
	}
	return nil
}

// takeGrown takes one raw sample from r, growing the buffer once when
// the transport reports the required size. Empty is (nil, false, nil).
func takeGrown(r transport.Reader) ([]byte, bool, error) {
	buf := make([]byte, takeBufferSize)
	for {
		n, _, err := r.Take(buf)
		if err == nil {
			return buf[:n], true, nil
		}
		if required := errors.RequiredSize(err); required > 0 {
			buf = make([]byte, required)
			continue
		}
		if errors.Is(err, errors.ErrNoSample) {
			return nil, false, nil
		}
		return nil, false, err
	}
}
