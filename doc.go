// Package ddsbridge is a middleware adaptation layer bridging a robotics
// application framework to an underlying DDS-style transport.
//
// # Architecture
//
// DDSBridge sits between an application framework (executors, schedulers,
// typed publish/subscribe APIs) and a data-distribution transport. The
// transport is consumed through a small opaque surface (transport package)
// that hides reliability, discovery and wire formats. On top of it the
// module provides:
//
//   - Entity lifecycle: contexts, nodes, publishers, subscriptions,
//     services, clients, wait sets and guard conditions (rmw package)
//   - The process-local graph cache with a monotonic version protocol
//     (graph package)
//   - The hybrid serialization pipeline: fast codecs for well-known
//     message shapes, introspection-driven encoding, raw fixed-size
//     copies, and an in-process fallback bus (codec package)
//   - A single-field content-filter language applied on the read side
//     (filter package)
//   - Request/reply correlation over paired rq/rr topics with an in-band
//     24-byte header (rmw package)
//   - QoS profile translation and compatibility checking (qos package)
//
// Two transport implementations ship with the module: an in-process
// reference transport for tests and single-process deployments
// (transport/memtransport) and a NATS-backed adapter for distributed use
// (transport/natstransport).
//
// # Typical usage
//
//	rctx, err := rmw.Init(rmw.WithName("talker"), rmw.WithTransport(tc))
//	node, err := rctx.CreateNode("talker", "/demo")
//	pub, err := node.CreatePublisher("/chatter", msgs.StringTypeSupport(), qos.Default())
//	err = pub.Publish(&msgs.String{Data: "hello"})
package ddsbridge
