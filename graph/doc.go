// Package graph maintains the process-local cache of known nodes and
// endpoints: which (name, namespace) pairs exist, and which publisher
// and subscription endpoints each carries with topic, resolved type
// name, 16-byte GID and QoS profile.
//
// The cache exposes a monotonic 64-bit version that increments on every
// mutation. Visitors never hold the cache lock across user callbacks, so
// an enumeration can observe a mutation mid-walk; enumerators that build
// length-prefixed results must use the version-loop protocol (count at
// version v0, fill, compare against v1, retry up to three times; see
// Collect).
//
// All methods are safe for concurrent use.
package graph
