package graph

import (
	"fmt"

	"github.com/c360/ddsbridge/errors"
)

// collectAttempts bounds the version-loop retries before giving up
const collectAttempts = 3

// Visitor is one of the cache's enumeration shapes: it walks items,
// stops when fn returns false, and reports the post-walk version plus
// the number of items visited.
type Visitor[T any] func(fn func(T) bool) (version uint64, count int)

// Collect materializes a visitor into a slice using the version-loop
// protocol: count at version v0, fill, compare against v1, retry on
// mismatch. After three failed attempts it returns ErrGraphChanged with
// a "graph changed while collecting <what>" message. Every enumeration
// API that returns a length-prefixed result goes through this.
func Collect[T any](what string, visit Visitor[T]) ([]T, error) {
	for attempt := 0; attempt < collectAttempts; attempt++ {
		v0, counted := visit(func(T) bool { return true })

		out := make([]T, 0, counted)
		v1, filled := visit(func(item T) bool {
			out = append(out, item)
			return true
		})

		if v0 == v1 && filled == counted {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w %s", errors.ErrGraphChanged, what)
}
