// Package qos defines the framework-side quality-of-service profile and
// the pure compatibility check between publisher and subscription
// profiles.
//
// A Profile is plain data: history, depth, reliability, durability,
// deadline, lifespan, liveliness and liveliness lease. Translation onto
// the transport's opaque QoS handle happens in the rmw package when an
// endpoint is created; this package deliberately has no transport
// dependency so graph records can embed profiles freely.
//
// Durations follow the wire sentinels: an all-max duration means
// infinite, an all-zero duration means "unspecified, keep the transport
// default".
package qos
