// Package transport declares the opaque surface DDSBridge consumes from
// the underlying data-distribution transport: a context, readers,
// writers, guard conditions, a blocking wait primitive, raw
// serialize/deserialize helpers and a QoS handle.
//
// Everything wire-level lives behind these interfaces: reliability,
// discovery, QoS enforcement, shared-memory segments. DDSBridge never
// inspects a transport handle beyond the methods declared here; handles
// from different transport implementations must not be mixed, and
// implementations are expected to reject foreign handles with
// errors.ErrIncorrectImplementation.
//
// Two implementations ship with the module:
//
//   - memtransport: an in-process reference transport used by tests and
//     single-process deployments
//   - natstransport: a NATS-backed adapter for distributed deployments
package transport
