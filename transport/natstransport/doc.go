// Package natstransport implements the transport contract over a NATS
// connection, giving participants in separate processes a shared data
// plane and a synchronized graph.
//
// # Subjects
//
// Topic data travels on <prefix>.data.<topic> with slashes folded to
// dots. Graph changes are announced on <prefix>.graph as JSON records;
// every participant applies remote announcements to its local graph
// cache and raises the graph-change guard. A participant's own
// announcements are suppressed by origin id, so local registrations
// apply exactly once.
//
// # Delivery
//
// NATS core delivery is fire-and-forget, so reader queues always drop
// the oldest sample on overflow and writers never report backpressure.
// Reliability and durability policies beyond queue depth are accepted
// and ignored.
package natstransport
