package natstransport

import (
	"strconv"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/pkg/buffer"
	"github.com/c360/ddsbridge/pkg/timestamp"
	"github.com/c360/ddsbridge/transport"
	"github.com/c360/ddsbridge/typesupport"
)

// keepAllDepth stands in for unbounded history on a ring buffer
const keepAllDepth = 4096

type sample struct {
	data []byte
	info transport.SampleInfo
}

// natsReader receives samples for one topic off a NATS subscription.
// The pending slot holds a sample that failed a short-buffer take so
// the retry with a grown buffer gets the same sample.
type natsReader struct {
	ctx   *Context
	topic string
	sub   *nats.Subscription
	queue *buffer.CircularBuffer[sample]

	mu        sync.Mutex
	pending   *sample
	destroyed bool
}

// CreateReader subscribes to the topic's data subject
func (c *Context) CreateReader(topic string, q *transport.QoS) (transport.Reader, error) {
	c.mu.Lock()
	if err := c.checkOpen("CreateReader"); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	depth := c.defaultDepth
	if q != nil {
		if q.IsKeepAll() {
			depth = keepAllDepth
		} else if q.GetHistoryDepth() > 0 {
			depth = q.GetHistoryDepth()
		}
	}
	queue, err := buffer.NewCircularBuffer[sample](depth,
		buffer.WithOverflowPolicy[sample](buffer.DropOldest))
	if err != nil {
		return nil, errors.Wrap(err, "natstransport", "CreateReader", "create sample queue")
	}

	r := &natsReader{ctx: c, topic: typesupport.NormalizeTopic(topic), queue: queue}
	sub, err := c.conn.Subscribe(c.dataSubject(topic), func(msg *nats.Msg) {
		s := sample{data: append([]byte(nil), msg.Data...)}
		if v := msg.Header.Get(hdrSourceTimestamp); v != "" {
			if ms, perr := strconv.ParseInt(v, 10, 64); perr == nil {
				s.info.SourceTimestampMs = ms
			}
		}
		_ = queue.Write(s)
		c.notify()
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "natstransport", "CreateReader", "subscribe to data subject")
	}
	r.sub = sub

	c.mu.Lock()
	c.readers[r] = true
	c.mu.Unlock()
	c.logger.Debugf("reader created on %s (depth %d)", r.topic, depth)
	return r, nil
}

// DestroyReader unsubscribes and invalidates the reader
func (c *Context) DestroyReader(tr transport.Reader) error {
	r, ok := tr.(*natsReader)
	if !ok || r.ctx != c {
		return errors.WrapInvalid(errors.ErrIncorrectImplementation, "natstransport", "DestroyReader", "check reader handle")
	}
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "natstransport", "DestroyReader", "check reader state")
	}
	r.destroyed = true
	r.pending = nil
	r.mu.Unlock()

	c.mu.Lock()
	delete(c.readers, r)
	c.mu.Unlock()

	if err := r.sub.Unsubscribe(); err != nil {
		return errors.Wrap(err, "natstransport", "DestroyReader", "unsubscribe")
	}
	return nil
}

// Topic returns the reader's normalized topic
func (r *natsReader) Topic() string { return r.topic }

// HasData reports whether a take would yield a sample
func (r *natsReader) HasData() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.destroyed && (r.pending != nil || r.queue.Len() > 0)
}

// Take copies the next sample into buf. A short buffer keeps the
// sample pending and reports the required size.
func (r *natsReader) Take(buf []byte) (int, transport.SampleInfo, error) {
	var info transport.SampleInfo
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return 0, info, errors.WrapInvalid(errors.ErrAlreadyDestroyed, "natstransport", "Take", "check reader state")
	}
	if r.pending == nil {
		s, ok := r.queue.Read()
		if !ok {
			return 0, info, errors.ErrNoSample
		}
		r.pending = &s
	}
	if len(buf) < len(r.pending.data) {
		return 0, info, &errors.ShortBufferError{Required: len(r.pending.data)}
	}
	n := copy(buf, r.pending.data)
	info = r.pending.info
	r.pending = nil
	return n, info, nil
}

// natsWriter publishes samples for one topic onto a NATS subject.
type natsWriter struct {
	ctx       *Context
	topic     string
	subject   string
	shm       bool
	mu        sync.Mutex
	destroyed bool
}

// CreateWriter creates a writer on the topic's data subject
func (c *Context) CreateWriter(topic string, _ *transport.QoS) (transport.Writer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen("CreateWriter"); err != nil {
		return nil, err
	}
	key := typesupport.NormalizeTopic(topic)
	return &natsWriter{
		ctx:     c,
		topic:   key,
		subject: c.dataSubject(topic),
		shm:     c.shmTopics[key],
	}, nil
}

// DestroyWriter invalidates the writer
func (c *Context) DestroyWriter(tw transport.Writer) error {
	w, ok := tw.(*natsWriter)
	if !ok || w.ctx != c {
		return errors.WrapInvalid(errors.ErrIncorrectImplementation, "natstransport", "DestroyWriter", "check writer handle")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "natstransport", "DestroyWriter", "check writer state")
	}
	w.destroyed = true
	return nil
}

// Topic returns the writer's normalized topic
func (w *natsWriter) Topic() string { return w.topic }

// Write publishes one serialized sample
func (w *natsWriter) Write(data []byte) error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "natstransport", "Write", "check writer state")
	}
	w.mu.Unlock()

	c := w.ctx
	if w.shm {
		c.mu.Lock()
		c.shmSlots[w.topic] = append([]byte(nil), data...)
		c.mu.Unlock()
		c.notify()
	}

	msg := &nats.Msg{
		Subject: w.subject,
		Data:    data,
		Header: nats.Header{
			hdrSourceTimestamp: []string{strconv.FormatInt(timestamp.Now(), 10)},
		},
	}
	if err := c.conn.PublishMsg(msg); err != nil {
		return errors.WrapTransient(err, "natstransport", "Write", "publish sample")
	}
	return nil
}
