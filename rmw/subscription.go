package rmw

import (
	"sync"
	"sync/atomic"

	"github.com/c360/ddsbridge/codec"
	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/filter"
	"github.com/c360/ddsbridge/graph"
	"github.com/c360/ddsbridge/msgs"
	"github.com/c360/ddsbridge/qos"
	"github.com/c360/ddsbridge/transport"
	"github.com/c360/ddsbridge/typesupport"
)

// takeBufferSize is the initial take buffer. Larger samples grow it
// once using the size reported by the transport.
const takeBufferSize = 4096

// Subscription wraps one transport reader.
type Subscription struct {
	ctx     *Context
	node    *Node
	topic   string
	ts      *typesupport.TypeSupport
	profile qos.Profile
	reader    transport.Reader
	attachKey uint64
	gid       GID
	codec     endpointCodec

	filter   atomic.Pointer[filter.Filter]
	callback atomic.Pointer[func(count int)]

	mu         sync.Mutex
	registered bool
	destroyed  bool
}

// CreateSubscription creates a subscription on topic under this node.
// The same creation contract as CreatePublisher applies: each failed
// step rewinds exactly the ones before it.
func (n *Node) CreateSubscription(topic string, ts *typesupport.TypeSupport, profile qos.Profile) (*Subscription, error) {
	c := n.ctx
	if err := c.checkAlive("CreateSubscription"); err != nil {
		return nil, err
	}
	if n.destroyed {
		return nil, errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Subscription", "CreateSubscription", "check node state")
	}

	s := &Subscription{ctx: c, node: n, topic: topic, ts: ts, profile: profile}
	s.codec = resolveCodec(topic, ts)
	if s.codec.hasIntrospection {
		if err := c.transport.BindTopicType(topic, ts); err != nil {
			return nil, errors.Wrap(err, "Subscription", "CreateSubscription", "bind topic type")
		}
	}

	reader, err := c.transport.CreateReader(topic, translateQoS(profile))
	if err != nil {
		return nil, errors.Wrap(err, "Subscription", "CreateSubscription", "create transport reader")
	}
	s.reader = reader

	key, err := c.transport.AttachReader(reader)
	if err != nil {
		_ = c.transport.DestroyReader(reader)
		return nil, errors.Wrap(err, "Subscription", "CreateSubscription", "attach reader to wait aggregate")
	}
	s.attachKey = key

	n.subscriptions.add(topic, ts)

	s.gid = newGID(c.transport.GUIDPrefix(), c.nextGIDTail())
	info := graph.EndpointInfo{
		NodeName:      n.name,
		NodeNamespace: n.namespace,
		Topic:         topic,
		TypeName:      s.codec.typeName,
		GID:           [16]byte(s.gid),
		Profile:       profile,
	}
	if err := c.transport.RegisterSubscriptionEndpoint(info); err != nil {
		_ = n.subscriptions.remove(topic, ts)
		_ = c.transport.DetachReader(s.attachKey)
		_ = c.transport.DestroyReader(reader)
		return nil, errors.Wrap(err, "Subscription", "CreateSubscription", "register graph endpoint")
	}
	s.registered = true
	n.trackSubscription(s)
	c.recordGraphVersion()
	return s, nil
}

// Destroy tears the subscription down in reverse creation order
func (s *Subscription) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Subscription", "Destroy", "check subscription state")
	}
	c := s.ctx

	if s.registered {
		_ = c.transport.UnregisterSubscriptionEndpoint([16]byte(s.gid))
		s.registered = false
	}
	s.node.untrackSubscription(s)
	_ = s.node.subscriptions.remove(s.topic, s.ts)

	s.destroyed = true
	c.recordGraphVersion()
	_ = c.transport.DetachReader(s.attachKey)
	if err := c.transport.DestroyReader(s.reader); err != nil {
		return errors.Wrap(err, "Subscription", "Destroy", "destroy transport reader")
	}
	return nil
}

// Topic returns the subscription's topic
func (s *Subscription) Topic() string { return s.topic }

// GID returns the subscription's graph identifier
func (s *Subscription) GID() GID { return s.gid }

// ActualQoS returns the profile the subscription was created with
func (s *Subscription) ActualQoS() qos.Profile { return s.profile }

// CountMatchedPublishers counts graph publishers on this topic
func (s *Subscription) CountMatchedPublishers() int {
	return s.ctx.Graph().CountPublishers(s.topic)
}

// SetCallback installs fn to be invoked by wait sets when this
// subscription has data ready. A nil fn clears it.
func (s *Subscription) SetCallback(fn func(count int)) {
	if fn == nil {
		s.callback.Store(nil)
		return
	}
	s.callback.Store(&fn)
}

// SetContentFilter parses and installs a filter expression. On a parse
// failure any previously installed filter stays in effect. An empty
// expression clears the filter.
func (s *Subscription) SetContentFilter(expression string, params []string) error {
	if expression == "" {
		s.filter.Store(nil)
		return nil
	}
	f, err := filter.Parse(expression, params, s.codec.desc)
	if err != nil {
		return errors.WrapInvalid(err, "Subscription", "SetContentFilter", "parse filter expression")
	}
	s.filter.Store(f)
	return nil
}

// ContentFilter returns the installed filter's expression and
// parameters, or empty values when no filter is set.
func (s *Subscription) ContentFilter() (string, []string) {
	f := s.filter.Load()
	if f == nil {
		return "", nil
	}
	return f.Expression(), f.Parameters()
}

// Take polls for one sample, decoding into msg. The boolean reports
// whether msg was filled; an empty queue is not an error.
func (s *Subscription) Take(msg any) (bool, error) {
	_, taken, err := s.TakeWithInfo(msg)
	return taken, err
}

// TakeWithInfo is Take with the transport's sample metadata. Samples
// rejected by the content filter are consumed but reported as not
// taken, as is a sample no installed codec can decode.
func (s *Subscription) TakeWithInfo(msg any) (transport.SampleInfo, bool, error) {
	var info transport.SampleInfo
	if s.destroyed {
		return info, false, errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Subscription", "TakeWithInfo", "check subscription state")
	}
	c := s.ctx

	if s.codec.fixedSize > 0 && c.transport.ShmHasData(s.topic) {
		data, shmInfo, ok, err := s.shmTake()
		if err != nil {
			return info, false, err
		}
		if ok {
			taken, derr := s.decodeAndFilter(data, msg)
			if derr != nil {
				return shmInfo, false, derr
			}
			if taken && c.metrics != nil {
				c.metrics.RecordTake(s.topic, "shm")
			}
			return shmInfo, taken, nil
		}
	}

	data, info, found, err := s.takeSerialized()
	if err != nil {
		return info, false, err
	}
	if !found {
		if s.codec.kind == codec.KindString {
			return info, s.takeFromFallback(msg), nil
		}
		return info, false, nil
	}

	taken, err := s.decodeAndFilter(data, msg)
	if err != nil {
		return info, false, err
	}
	if taken && c.metrics != nil {
		c.metrics.RecordTake(s.topic, "transport")
	}
	return info, taken, nil
}

// TakeSerialized polls for one sample without decoding it
func (s *Subscription) TakeSerialized() ([]byte, bool, error) {
	data, _, found, err := s.TakeSerializedWithInfo()
	return data, found, err
}

// TakeSerializedWithInfo is TakeSerialized with sample metadata
func (s *Subscription) TakeSerializedWithInfo() ([]byte, transport.SampleInfo, bool, error) {
	if s.destroyed {
		var info transport.SampleInfo
		return nil, info, false, errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Subscription", "TakeSerializedWithInfo", "check subscription state")
	}
	data, info, found, err := s.takeSerialized()
	return data, info, found, err
}

// takeSerialized takes one raw sample from the transport, growing the
// buffer once when the transport reports the required size.
func (s *Subscription) takeSerialized() ([]byte, transport.SampleInfo, bool, error) {
	c := s.ctx
	buf := make([]byte, takeBufferSize)
	for {
		n, info, err := s.reader.Take(buf)
		if err == nil {
			return buf[:n], info, true, nil
		}
		if required := errors.RequiredSize(err); required > 0 {
			if c.metrics != nil {
				c.metrics.RecordShortBuffer()
			}
			buf = make([]byte, required)
			continue
		}
		if errors.Is(err, errors.ErrNoSample) {
			return nil, info, false, nil
		}
		return nil, info, false, errors.WrapTransient(err, "Subscription", "Take", "take sample")
	}
}

// shmTake drains the shared-memory slot, growing once on a short
// buffer. The slot can race empty between the pre-check and the take;
// that is reported as not-ok, not an error.
func (s *Subscription) shmTake() ([]byte, transport.SampleInfo, bool, error) {
	var info transport.SampleInfo
	c := s.ctx
	buf := make([]byte, takeBufferSize)
	for {
		n, ok, err := c.transport.ShmTryTake(s.topic, buf)
		if err == nil {
			if !ok {
				return nil, info, false, nil
			}
			return buf[:n], info, true, nil
		}
		if required := errors.RequiredSize(err); required > 0 {
			buf = make([]byte, required)
			continue
		}
		return nil, info, false, errors.WrapTransient(err, "Subscription", "Take", "take shared-memory sample")
	}
}

// takeFromFallback drains one queued String payload from the context's
// fallback bus.
func (s *Subscription) takeFromFallback(msg any) bool {
	c := s.ctx
	v, ok := c.fallback.Take(s.topic)
	if !ok {
		return false
	}
	str, isStr := msg.(*msgs.String)
	if !isStr {
		c.logger.Debugf("dropping fallback message on %s: destination is not a String", s.topic)
		return false
	}
	str.Data = v
	if !s.passesFilter(str) {
		return false
	}
	if c.metrics != nil {
		c.metrics.RecordTake(s.topic, "fallback")
		c.metrics.RecordFallbackDepth(s.topic, c.fallback.Depth(s.topic))
	}
	return true
}

// decodeAndFilter runs the decode ladder, then the content filter. The
// sample is consumed either way; a filter reject reports not-taken.
func (s *Subscription) decodeAndFilter(data []byte, msg any) (bool, error) {
	if err := s.decode(data, msg); err != nil {
		if errors.Is(err, errors.ErrTypeless) {
			s.ctx.logger.Debugf("dropping sample on %s: no codec applies", s.topic)
			return false, nil
		}
		return false, err
	}
	if !s.passesFilter(msg) {
		return false, nil
	}
	return true, nil
}

// decode picks the candidate decoder per the endpoint's codec plan:
// raw for exact-size fixed structs without introspection, otherwise
// introspection with a dynamic-registry fallback, then the fast codec,
// then the dynamic registry, then raw and introspection as last tries.
func (s *Subscription) decode(data []byte, msg any) error {
	ec := s.codec
	if !ec.hasIntrospection && ec.kind == codec.KindNone && ec.fixedSize > 0 && len(data) == ec.fixedSize {
		return codec.DecodeRaw(data, msg)
	}
	if ec.hasIntrospection {
		err := codec.DecodeMessage(ec.desc, data, msg)
		if err == nil {
			return nil
		}
		if derr := codec.DecodeDynamic(ec.typeName, data, msg); derr == nil {
			return nil
		}
		return errors.Wrap(err, "Subscription", "Take", "decode sample")
	}
	if ec.kind != codec.KindNone {
		return codec.DecodeFast(ec.kind, data, msg)
	}
	if err := codec.DecodeDynamic(ec.typeName, data, msg); err == nil {
		return nil
	} else if !errors.Is(err, errors.ErrNotRegistered) {
		return err
	}
	if ec.fixedSize > 0 {
		if err := codec.DecodeRaw(data, msg); err == nil {
			return nil
		}
	}
	return errors.WrapInvalid(errors.ErrTypeless, "Subscription", "Take", "decode sample")
}

// passesFilter evaluates the installed content filter against msg
func (s *Subscription) passesFilter(msg any) bool {
	f := s.filter.Load()
	if f == nil {
		return true
	}
	ok := f.Evaluate(msg)
	if !ok && s.ctx.metrics != nil {
		s.ctx.metrics.RecordFilterReject(s.topic)
	}
	return ok
}
