package buffer

import "github.com/c360/ddsbridge/errors"

// Option configures a CircularBuffer during construction.
type Option[T any] func(*CircularBuffer[T]) error

// WithOverflowPolicy sets the behavior when the buffer is full.
func WithOverflowPolicy[T any](policy OverflowPolicy) Option[T] {
	return func(b *CircularBuffer[T]) error {
		switch policy {
		case DropOldest, DropNewest, Block:
			b.policy = policy
			return nil
		default:
			return errors.New("unknown overflow policy")
		}
	}
}

// WithDropCallback registers fn to be called with each dropped item.
// The callback runs while the buffer lock is held, so it must not
// call back into the buffer.
func WithDropCallback[T any](fn func(T)) Option[T] {
	return func(b *CircularBuffer[T]) error {
		b.onDrop = fn
		return nil
	}
}
