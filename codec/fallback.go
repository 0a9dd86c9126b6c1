package codec

import (
	"sync"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/pkg/buffer"
	"github.com/c360/ddsbridge/typesupport"
)

// DefaultFallbackDepth bounds each per-topic fallback queue.
const DefaultFallbackDepth = 1024

// FallbackBus queues string payloads per topic when the transport
// cannot accept them. Each context owns one bus; queues are bounded and
// drop their oldest entry when full. Topics are keyed in normalized
// form, so publishers on "/chatter" and takers on "chatter" meet.
type FallbackBus struct {
	mu     sync.Mutex
	depth  int
	topics map[string]*buffer.CircularBuffer[string]
}

// NewFallbackBus creates a bus with the given per-topic depth.
// A depth of 0 or less selects DefaultFallbackDepth.
func NewFallbackBus(depth int) *FallbackBus {
	if depth <= 0 {
		depth = DefaultFallbackDepth
	}
	return &FallbackBus{
		depth:  depth,
		topics: make(map[string]*buffer.CircularBuffer[string]),
	}
}

// Publish queues value on topic, evicting the oldest entry when the
// topic queue is full.
func (fb *FallbackBus) Publish(topic, value string) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	key := typesupport.NormalizeTopic(topic)
	buf, ok := fb.topics[key]
	if !ok {
		var err error
		buf, err = buffer.NewCircularBuffer[string](fb.depth,
			buffer.WithOverflowPolicy[string](buffer.DropOldest))
		if err != nil {
			return errors.Wrap(err, "FallbackBus", "Publish", "create topic queue")
		}
		fb.topics[key] = buf
	}
	if err := buf.Write(value); err != nil {
		return errors.Wrap(err, "FallbackBus", "Publish", "queue value")
	}
	return nil
}

// Take removes and returns the oldest queued value for topic.
// ok is false when nothing is queued.
func (fb *FallbackBus) Take(topic string) (value string, ok bool) {
	fb.mu.Lock()
	buf := fb.topics[typesupport.NormalizeTopic(topic)]
	fb.mu.Unlock()

	if buf == nil {
		return "", false
	}
	return buf.Read()
}

// Depth returns the number of values queued for topic.
func (fb *FallbackBus) Depth(topic string) int {
	fb.mu.Lock()
	buf := fb.topics[typesupport.NormalizeTopic(topic)]
	fb.mu.Unlock()

	if buf == nil {
		return 0
	}
	return buf.Len()
}

// Close drops all queues.
func (fb *FallbackBus) Close() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for key, buf := range fb.topics {
		buf.Close()
		delete(fb.topics, key)
	}
}
