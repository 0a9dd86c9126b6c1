package rmw

import (
	"github.com/c360/ddsbridge/qos"
	"github.com/c360/ddsbridge/transport"
)

// durationNs collapses a profile duration to the transport's nanosecond
// convention: 0 keeps the transport default, MaxUint64 means infinite.
func durationNs(d qos.Duration) uint64 {
	if d.IsInfinite() {
		return transport.InfiniteDuration
	}
	if d.IsUnspecified() {
		return 0
	}
	return d.Nanos()
}

// translateQoS maps a framework profile onto the transport QoS handle
// through its setter surface.
func translateQoS(p qos.Profile) *transport.QoS {
	q := transport.DefaultQoS()

	switch p.History {
	case qos.HistoryKeepAll:
		q.HistoryKeepAll()
	case qos.HistoryKeepLast:
		// Depth 0 keeps the transport's default history
		if p.Depth > 0 {
			q.HistoryDepth(p.Depth)
		}
	}

	switch p.Reliability {
	case qos.ReliabilityReliable:
		q.Reliable()
	case qos.ReliabilityBestEffort:
		q.BestEffort()
	}

	switch p.Durability {
	case qos.DurabilityTransientLocal:
		q.TransientLocal()
	case qos.DurabilityVolatile:
		q.Volatile()
	}

	if ns := durationNs(p.Deadline); ns != 0 {
		q.DeadlineNs(ns)
	}
	if ns := durationNs(p.Lifespan); ns != 0 {
		q.LifespanNs(ns)
	}

	lease := durationNs(p.LivelinessLease)
	switch p.Liveliness {
	case qos.LivelinessAutomatic:
		q.LivelinessAutomaticNs(lease)
	case qos.LivelinessManualByTopic:
		q.LivelinessManualTopicNs(lease)
	}

	return q
}
