// Package buffer provides a generic bounded circular buffer.
//
// The buffer is safe for concurrent use and is configured through
// functional options. When full, the overflow policy decides whether
// the oldest item is dropped, the newest item is rejected, or the
// writer blocks until space frees up.
//
// # Typical usage
//
//	buf, err := buffer.NewCircularBuffer[string](1024,
//		buffer.WithOverflowPolicy[string](buffer.DropOldest),
//	)
//	if err != nil {
//		return err
//	}
//	_ = buf.Write("item")
//	item, ok := buf.Read()
package buffer
