package rmw

import (
	gocontext "context"
	"time"

	"github.com/c360/ddsbridge/codec"
	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/graph"
	"github.com/c360/ddsbridge/msgs"
	"github.com/c360/ddsbridge/pkg/retry"
	"github.com/c360/ddsbridge/qos"
	"github.com/c360/ddsbridge/transport"
	"github.com/c360/ddsbridge/typesupport"
)

// stringPublishRetries bounds the in-call backpressure window on the
// String fast codec before the fallback bus absorbs the message.
const stringPublishRetries = 256

// endpointCodec is the per-endpoint serialization plan resolved once at
// creation: which of the fast/introspection/raw branches apply.
type endpointCodec struct {
	desc             *typesupport.MessageDescriptor
	hasIntrospection bool
	kind             codec.Kind
	fixedSize        int
	typeName         string
}

// resolveCodec inspects the type support and topic name. The fast codec
// tag only fills in when no introspection is available, keeping the
// publish branches mutually exclusive.
func resolveCodec(topic string, ts *typesupport.TypeSupport) endpointCodec {
	ec := endpointCodec{typeName: ts.TypeName()}
	if d := ts.Introspection(); d != nil {
		ec.desc = d
		ec.fixedSize = d.FixedSize
		if len(d.Fields) > 0 {
			ec.hasIntrospection = true
		}
	}
	if !ec.hasIntrospection {
		ec.kind = codec.KindForTopic(topic)
	}
	return ec
}

// typeless reports whether no serialization branch applies at all
func (ec endpointCodec) typeless() bool {
	return !ec.hasIntrospection && ec.kind == codec.KindNone && ec.fixedSize == 0
}

// Publisher wraps one transport writer.
type Publisher struct {
	ctx     *Context
	node    *Node
	topic   string
	ts      *typesupport.TypeSupport
	profile qos.Profile
	writer  transport.Writer
	gid     GID
	codec   endpointCodec

	registered bool
	destroyed  bool
}

// CreatePublisher creates a publisher on topic under this node. Failure
// at any step rewinds exactly the steps already completed.
func (n *Node) CreatePublisher(topic string, ts *typesupport.TypeSupport, profile qos.Profile) (*Publisher, error) {
	c := n.ctx
	if err := c.checkAlive("CreatePublisher"); err != nil {
		return nil, err
	}
	if n.destroyed {
		return nil, errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Publisher", "CreatePublisher", "check node state")
	}

	p := &Publisher{ctx: c, node: n, topic: topic, ts: ts, profile: profile}
	p.codec = resolveCodec(topic, ts)
	if p.codec.hasIntrospection {
		if err := c.transport.BindTopicType(topic, ts); err != nil {
			return nil, errors.Wrap(err, "Publisher", "CreatePublisher", "bind topic type")
		}
	}
	if p.codec.typeless() {
		c.logger.Debugf("publisher on %s has no type support; messages will be dropped", topic)
	}

	writer, err := c.transport.CreateWriter(topic, translateQoS(profile))
	if err != nil {
		return nil, errors.Wrap(err, "Publisher", "CreatePublisher", "create transport writer")
	}
	p.writer = writer

	n.publishers.add(topic, ts)

	p.gid = newGID(c.transport.GUIDPrefix(), c.nextGIDTail())
	info := graph.EndpointInfo{
		NodeName:      n.name,
		NodeNamespace: n.namespace,
		Topic:         topic,
		TypeName:      p.codec.typeName,
		GID:           [16]byte(p.gid),
		Profile:       profile,
	}
	if err := c.transport.RegisterPublisherEndpoint(info); err != nil {
		_ = n.publishers.remove(topic, ts)
		_ = c.transport.DestroyWriter(writer)
		return nil, errors.Wrap(err, "Publisher", "CreatePublisher", "register graph endpoint")
	}
	p.registered = true
	n.trackPublisher(p)
	c.recordGraphVersion()
	return p, nil
}

// Destroy tears the publisher down in reverse creation order. Graph
// unregistration is best-effort; transport errors are surfaced.
func (p *Publisher) Destroy() error {
	if p.destroyed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Publisher", "Destroy", "check publisher state")
	}
	c := p.ctx

	if p.registered {
		_ = c.transport.UnregisterPublisherEndpoint([16]byte(p.gid))
		p.registered = false
	}
	p.node.untrackPublisher(p)
	_ = p.node.publishers.remove(p.topic, p.ts)

	p.destroyed = true
	c.recordGraphVersion()
	if err := c.transport.DestroyWriter(p.writer); err != nil {
		return errors.Wrap(err, "Publisher", "Destroy", "destroy transport writer")
	}
	return nil
}

// Topic returns the publisher's topic
func (p *Publisher) Topic() string { return p.topic }

// GID returns the publisher's graph identifier
func (p *Publisher) GID() GID { return p.gid }

// ActualQoS returns the profile the publisher was created with
func (p *Publisher) ActualQoS() qos.Profile { return p.profile }

// CountMatchedSubscriptions counts graph subscriptions on this topic
func (p *Publisher) CountMatchedSubscriptions() int {
	return p.ctx.Graph().CountSubscriptions(p.topic)
}

// Publish serializes msg through the endpoint's codec plan and writes
// it. Codec absence is not an error: the message is dropped with a
// debug log. On success the context's graph-change guard is raised as a
// wakeup cue.
func (p *Publisher) Publish(msg any) error {
	if p.destroyed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Publisher", "Publish", "check publisher state")
	}
	c := p.ctx
	start := time.Now()

	var (
		data []byte
		err  error
		path string
	)
	switch {
	case p.codec.kind != codec.KindNone:
		data, err = codec.EncodeFast(p.codec.kind, msg)
		path = "fast"
	case p.codec.hasIntrospection:
		data, err = codec.EncodeMessage(p.codec.desc, msg)
		path = "introspection"
	case p.codec.fixedSize > 0:
		data, err = codec.EncodeRaw(msg)
		path = "raw"
	default:
		c.logger.Debugf("dropping message on %s: no codec applies", p.topic)
		return nil
	}
	if err != nil {
		return errors.WrapInvalid(err, "Publisher", "Publish", "serialize message")
	}

	if p.codec.kind == codec.KindString {
		err = p.writeStringWithBackpressure(data, msg)
	} else {
		err = p.writer.Write(data)
		if err != nil {
			err = errors.WrapTransient(err, "Publisher", "Publish", "write sample")
		}
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError("publisher", "write")
		}
		return err
	}

	c.transport.SetGraphGuard(true)
	if c.metrics != nil {
		c.metrics.RecordPublish(p.topic, path)
		c.metrics.RecordPublishDuration(p.topic, time.Since(start))
	}
	return nil
}

// writeStringWithBackpressure retries a full queue within the call,
// then hands the message to the fallback bus.
func (p *Publisher) writeStringWithBackpressure(data []byte, msg any) error {
	c := p.ctx
	err := retry.Do(gocontext.Background(), retry.Tight(stringPublishRetries), func() error {
		werr := p.writer.Write(data)
		if werr == nil {
			return nil
		}
		if !errors.Is(werr, errors.ErrWouldBlock) {
			return retry.NonRetryable(werr)
		}
		if c.metrics != nil {
			c.metrics.RecordPublishRetry(p.topic)
		}
		return werr
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, errors.ErrWouldBlock) {
		return errors.WrapTransient(err, "Publisher", "Publish", "write sample")
	}

	str, ok := msg.(*msgs.String)
	if !ok {
		return errors.WrapTransient(err, "Publisher", "Publish", "write sample")
	}
	if ferr := c.fallback.Publish(p.topic, str.Data); ferr != nil {
		return errors.WrapTransient(ferr, "Publisher", "Publish", "queue on fallback bus")
	}
	c.logger.Debugf("queued message on fallback bus for %s after %d retries", p.topic, stringPublishRetries)
	if c.metrics != nil {
		c.metrics.RecordPublish(p.topic, "fallback")
		c.metrics.RecordFallbackDepth(p.topic, c.fallback.Depth(p.topic))
	}
	return nil
}
