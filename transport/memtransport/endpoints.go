package memtransport

import (
	"sync"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/pkg/timestamp"
	"github.com/c360/ddsbridge/transport"
	"github.com/c360/ddsbridge/typesupport"
)

type sample struct {
	data []byte
	info transport.SampleInfo
}

// topicHub links the writers and readers of one normalized topic.
// Membership and the retained/shm slots are guarded by the context
// lock; reader queues have their own locks so takes and wait checks
// never contend with hub mutation.
type topicHub struct {
	name     string
	readers  []*memReader
	retained []sample
	shmSlot  *sample

	// deliverMu serializes writers on this topic so a delivery can hold
	// every reader lock at once without deadlocking another writer.
	deliverMu sync.Mutex
}

type memReader struct {
	ctx   *Context
	hub   *topicHub
	topic string

	reliable bool
	depth    int // 0 means unbounded (keep-all)

	mu        sync.Mutex
	queue     []sample
	destroyed bool
}

// Topic returns the topic this reader is bound to
func (r *memReader) Topic() string { return r.topic }

// HasData reports whether a sample is pending
func (r *memReader) HasData() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue) > 0
}

// Take copies the next pending sample into buf
func (r *memReader) Take(buf []byte) (int, transport.SampleInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return 0, transport.SampleInfo{}, errors.WrapInvalid(errors.ErrAlreadyDestroyed,
			"memtransport", "Take", "check reader state")
	}
	if len(r.queue) == 0 {
		return 0, transport.SampleInfo{}, errors.ErrNoSample
	}
	s := r.queue[0]
	if len(buf) < len(s.data) {
		return 0, transport.SampleInfo{}, &errors.ShortBufferError{Required: len(s.data)}
	}
	n := copy(buf, s.data)
	r.queue = r.queue[1:]
	return n, s.info, nil
}

// fullLocked reports whether a reliable delivery must be refused.
// Callers must hold r.mu.
func (r *memReader) fullLocked(writerReliable bool) bool {
	if r.destroyed {
		return false
	}
	return writerReliable && r.reliable && r.depth > 0 && len(r.queue) >= r.depth
}

// enqueueLocked appends a sample, applying keep-last eviction for
// bounded queues. Callers must hold r.mu and have already settled the
// reliable-full question for the whole delivery.
func (r *memReader) enqueueLocked(s sample) {
	if r.destroyed {
		return
	}
	if r.depth > 0 && len(r.queue) >= r.depth {
		// Keep-last: the oldest sample gives way
		r.queue = r.queue[1:]
	}
	r.queue = append(r.queue, s)
}

type memWriter struct {
	ctx   *Context
	hub   *topicHub
	topic string

	reliable       bool
	transientLocal bool
	retainDepth    int

	mu        sync.Mutex
	destroyed bool
}

// Topic returns the topic this writer is bound to
func (w *memWriter) Topic() string { return w.topic }

// Write delivers one serialized sample to every reader on the topic
func (w *memWriter) Write(data []byte) error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "memtransport", "Write", "check writer state")
	}
	w.mu.Unlock()

	c := w.ctx
	s := sample{
		data: append([]byte(nil), data...),
		info: transport.SampleInfo{SourceTimestampMs: timestamp.Now()},
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.WrapInvalid(errors.ErrContextShutdown, "memtransport", "Write", "check context")
	}
	readers := append([]*memReader(nil), w.hub.readers...)
	c.mu.Unlock()

	// All-or-nothing: settle the reliable-full question across every
	// reader before any of them sees the sample, so a backpressure
	// retry cannot re-deliver to readers that already accepted it.
	w.hub.deliverMu.Lock()
	for _, r := range readers {
		r.mu.Lock()
	}
	refused := false
	for _, r := range readers {
		if r.fullLocked(w.reliable) {
			refused = true
			break
		}
	}
	if !refused {
		for _, r := range readers {
			r.enqueueLocked(s)
		}
	}
	for i := len(readers) - 1; i >= 0; i-- {
		readers[i].mu.Unlock()
	}
	w.hub.deliverMu.Unlock()

	if refused {
		c.notify()
		return errors.WrapTransient(errors.ErrWouldBlock, "memtransport", "Write", "enqueue sample")
	}

	// The shm slot and retained history record accepted samples only
	c.mu.Lock()
	if !c.closed {
		if c.shmTopics[w.hub.name] {
			shm := s
			w.hub.shmSlot = &shm
		}
		if w.transientLocal {
			w.hub.retained = append(w.hub.retained, s)
			if len(w.hub.retained) > w.retainDepth {
				w.hub.retained = w.hub.retained[len(w.hub.retained)-w.retainDepth:]
			}
		}
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// CreateReader creates a reader on topic. A nil QoS means defaults.
func (c *Context) CreateReader(topic string, q *transport.QoS) (transport.Reader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen("CreateReader"); err != nil {
		return nil, err
	}

	h := c.hub(topic)
	r := &memReader{
		ctx:      c,
		hub:      h,
		topic:    topic,
		reliable: q.GetReliability() != transport.ReliabilityBestEffort,
		depth:    c.queueDepth(q),
	}
	// Late joiners on a durable topic start with the retained history
	if q.GetDurability() == transport.DurabilityTransientLocal ||
		q.GetDurability() == transport.DurabilityPersistent {
		r.queue = append(r.queue, h.retained...)
	}
	h.readers = append(h.readers, r)
	c.logger.Debugf("reader created on %s (depth=%d)", topic, r.depth)
	return r, nil
}

// CreateWriter creates a writer on topic. A nil QoS means defaults.
func (c *Context) CreateWriter(topic string, q *transport.QoS) (transport.Writer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen("CreateWriter"); err != nil {
		return nil, err
	}

	h := c.hub(topic)
	retain := c.queueDepth(q)
	if retain == 0 {
		retain = c.defaultDepth
	}
	w := &memWriter{
		ctx:      c,
		hub:      h,
		topic:    topic,
		reliable: q.GetReliability() != transport.ReliabilityBestEffort,
		transientLocal: q.GetDurability() == transport.DurabilityTransientLocal ||
			q.GetDurability() == transport.DurabilityPersistent,
		retainDepth: retain,
	}
	c.logger.Debugf("writer created on %s", topic)
	return w, nil
}

// queueDepth resolves the effective queue bound for a QoS handle.
// Callers must hold c.mu.
func (c *Context) queueDepth(q *transport.QoS) int {
	if q.IsKeepAll() {
		return 0
	}
	if d := q.GetHistoryDepth(); d > 0 {
		return d
	}
	return c.defaultDepth
}

// DestroyReader releases a reader created by this context
func (c *Context) DestroyReader(r transport.Reader) error {
	mr, ok := r.(*memReader)
	if !ok || mr.ctx != c {
		return errors.WrapInvalid(errors.ErrIncorrectImplementation,
			"memtransport", "DestroyReader", "check handle origin")
	}

	mr.mu.Lock()
	if mr.destroyed {
		mr.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed,
			"memtransport", "DestroyReader", "check handle state")
	}
	mr.destroyed = true
	mr.queue = nil
	mr.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.hubs[typesupport.NormalizeTopic(mr.topic)]
	if h != nil {
		for i, cand := range h.readers {
			if cand == mr {
				h.readers[i] = h.readers[len(h.readers)-1]
				h.readers = h.readers[:len(h.readers)-1]
				break
			}
		}
	}
	return nil
}

// DestroyWriter releases a writer created by this context
func (c *Context) DestroyWriter(w transport.Writer) error {
	mw, ok := w.(*memWriter)
	if !ok || mw.ctx != c {
		return errors.WrapInvalid(errors.ErrIncorrectImplementation,
			"memtransport", "DestroyWriter", "check handle origin")
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.destroyed {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed,
			"memtransport", "DestroyWriter", "check handle state")
	}
	mw.destroyed = true
	return nil
}
