package buffer

import (
	"sync"

	"github.com/c360/ddsbridge/errors"
)

// OverflowPolicy controls behavior when writing to a full buffer.
type OverflowPolicy int

const (
	// DropOldest evicts the oldest item to make room for the new one.
	DropOldest OverflowPolicy = iota
	// DropNewest rejects the incoming item and keeps the buffer as is.
	DropNewest
	// Block waits until a reader frees a slot.
	Block
)

// Statistics reports cumulative buffer activity.
type Statistics struct {
	Writes  uint64
	Reads   uint64
	Dropped uint64
}

// CircularBuffer is a fixed-capacity FIFO ring.
type CircularBuffer[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	items    []T
	head     int
	size     int
	policy   OverflowPolicy
	onDrop   func(T)
	stats    Statistics
	closed   bool
	zeroItem T
}

// NewCircularBuffer creates a buffer holding at most capacity items.
func NewCircularBuffer[T any](capacity int, opts ...Option[T]) (*CircularBuffer[T], error) {
	if capacity <= 0 {
		return nil, errors.WrapInvalid(
			errors.New("capacity must be positive"),
			"buffer", "NewCircularBuffer", "validate capacity")
	}
	b := &CircularBuffer[T]{
		items:  make([]T, capacity),
		policy: DropOldest,
	}
	b.notFull = sync.NewCond(&b.mu)
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, errors.WrapInvalid(err, "buffer", "NewCircularBuffer", "apply option")
		}
	}
	return b, nil
}

// Write appends an item, applying the overflow policy when full.
func (b *CircularBuffer[T]) Write(item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.WrapInvalid(
			errors.New("buffer is closed"),
			"buffer", "Write", "check state")
	}

	for b.size == len(b.items) {
		switch b.policy {
		case DropOldest:
			evicted := b.items[b.head]
			b.items[b.head] = b.zeroItem
			b.head = (b.head + 1) % len(b.items)
			b.size--
			b.stats.Dropped++
			if b.onDrop != nil {
				b.onDrop(evicted)
			}
		case DropNewest:
			b.stats.Dropped++
			if b.onDrop != nil {
				b.onDrop(item)
			}
			return errors.WrapTransient(
				errors.New("buffer is full"),
				"buffer", "Write", "append item")
		case Block:
			b.notFull.Wait()
			if b.closed {
				return errors.WrapInvalid(
					errors.New("buffer is closed"),
					"buffer", "Write", "check state")
			}
		}
	}

	tail := (b.head + b.size) % len(b.items)
	b.items[tail] = item
	b.size++
	b.stats.Writes++
	return nil
}

// Read removes and returns the oldest item. ok is false when empty.
func (b *CircularBuffer[T]) Read() (item T, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 {
		return b.zeroItem, false
	}
	item = b.items[b.head]
	b.items[b.head] = b.zeroItem
	b.head = (b.head + 1) % len(b.items)
	b.size--
	b.stats.Reads++
	b.notFull.Signal()
	return item, true
}

// Len returns the number of buffered items.
func (b *CircularBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the buffer capacity.
func (b *CircularBuffer[T]) Cap() int {
	return len(b.items)
}

// Stats returns a snapshot of cumulative counters.
func (b *CircularBuffer[T]) Stats() Statistics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Close marks the buffer closed and wakes blocked writers.
// Buffered items remain readable.
func (b *CircularBuffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.notFull.Broadcast()
}
