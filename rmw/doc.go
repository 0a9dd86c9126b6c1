// Package rmw is the middleware adaptation layer: it bridges the
// framework-facing entity model (contexts, nodes, publishers,
// subscriptions, services, clients, wait sets) onto a transport.Context.
//
// # Architecture
//
// A Context wraps one transport context plus the per-context fallback
// bus. Nodes own endpoint registrations; publishers and subscriptions
// wrap one transport writer or reader each and register themselves into
// the graph cache with a stable 16-byte GID. Services and clients pair
// two unidirectional topics (rq/ and rr/ prefixes) and correlate
// request to response through a 24-byte in-band header.
//
// # Publish and take
//
// Publishing selects exactly one encoding branch per call: fast codec,
// introspection, raw copy, or drop-with-log. Take mirrors it on the
// read side, preceded by the shared-memory fast path and followed by
// the optional content filter. Neither path reports "no data" or codec
// absence as an error.
//
// # Concurrency
//
// Entities are not internally locked: two goroutines must not operate
// on the same publisher, subscription, service, client, node, or wait
// set at once. Distinct entities of one context may run in parallel;
// the graph cache and the fallback bus serialize internally.
package rmw
