package transport

import "math"

// InfiniteDuration is the sentinel for infinite QoS durations
const InfiniteDuration uint64 = math.MaxUint64

// Reliability settings on the transport QoS handle
type Reliability int8

// Reliability values; the zero value keeps the transport default
const (
	ReliabilityDefault Reliability = iota
	ReliabilityReliable
	ReliabilityBestEffort
)

// Durability settings on the transport QoS handle
type Durability int8

// Durability values; the zero value keeps the transport default
const (
	DurabilityDefault Durability = iota
	DurabilityVolatile
	DurabilityTransientLocal
	DurabilityPersistent
)

// Liveliness settings on the transport QoS handle
type Liveliness int8

// Liveliness values; the zero value keeps the transport default
const (
	LivelinessDefault Liveliness = iota
	LivelinessAutomatic
	LivelinessManualByParticipant
	LivelinessManualByTopic
)

// QoS is the transport's opaque QoS handle, assembled through chained
// setter calls. The zero handle (or nil) keeps transport defaults for
// every policy. Duration fields use nanoseconds with 0 meaning
// "transport default" and InfiniteDuration meaning infinite.
type QoS struct {
	reliability Reliability
	durability  Durability
	liveliness  Liveliness

	historyKeepAll bool
	historyDepth   int

	deadlineNs          uint64
	lifespanNs          uint64
	latencyBudgetNs     uint64
	livelinessLeaseNs   uint64
	ownershipExclusive  bool
	partition           string
	transportPriority   int32
	maxSamples          int32
	maxInstances        int32
	maxSamplesPerInst   int32
	resourceLimitsSetup bool
}

// DefaultQoS returns a handle with every policy at the transport default
func DefaultQoS() *QoS {
	return &QoS{}
}

// Reliable requests reliable delivery
func (q *QoS) Reliable() *QoS {
	q.reliability = ReliabilityReliable
	return q
}

// BestEffort requests best-effort delivery
func (q *QoS) BestEffort() *QoS {
	q.reliability = ReliabilityBestEffort
	return q
}

// TransientLocal requests transient-local durability
func (q *QoS) TransientLocal() *QoS {
	q.durability = DurabilityTransientLocal
	return q
}

// Persistent requests persistent durability
func (q *QoS) Persistent() *QoS {
	q.durability = DurabilityPersistent
	return q
}

// Volatile requests volatile durability
func (q *QoS) Volatile() *QoS {
	q.durability = DurabilityVolatile
	return q
}

// HistoryDepth requests KEEP_LAST history with the given depth
func (q *QoS) HistoryDepth(depth int) *QoS {
	q.historyKeepAll = false
	q.historyDepth = depth
	return q
}

// HistoryKeepAll requests KEEP_ALL history
func (q *QoS) HistoryKeepAll() *QoS {
	q.historyKeepAll = true
	q.historyDepth = 0
	return q
}

// DeadlineNs sets the deadline period in nanoseconds
func (q *QoS) DeadlineNs(ns uint64) *QoS {
	q.deadlineNs = ns
	return q
}

// LifespanNs sets the sample lifespan in nanoseconds
func (q *QoS) LifespanNs(ns uint64) *QoS {
	q.lifespanNs = ns
	return q
}

// LatencyBudgetNs sets the latency budget in nanoseconds
func (q *QoS) LatencyBudgetNs(ns uint64) *QoS {
	q.latencyBudgetNs = ns
	return q
}

// LivelinessAutomaticNs requests automatic liveliness with the given lease
func (q *QoS) LivelinessAutomaticNs(leaseNs uint64) *QoS {
	q.liveliness = LivelinessAutomatic
	q.livelinessLeaseNs = leaseNs
	return q
}

// LivelinessManualParticipantNs requests manual-by-participant liveliness
func (q *QoS) LivelinessManualParticipantNs(leaseNs uint64) *QoS {
	q.liveliness = LivelinessManualByParticipant
	q.livelinessLeaseNs = leaseNs
	return q
}

// LivelinessManualTopicNs requests manual-by-topic liveliness
func (q *QoS) LivelinessManualTopicNs(leaseNs uint64) *QoS {
	q.liveliness = LivelinessManualByTopic
	q.livelinessLeaseNs = leaseNs
	return q
}

// OwnershipExclusive requests exclusive ownership
func (q *QoS) OwnershipExclusive() *QoS {
	q.ownershipExclusive = true
	return q
}

// Partition sets the partition name
func (q *QoS) Partition(name string) *QoS {
	q.partition = name
	return q
}

// TransportPriority sets the transport priority
func (q *QoS) TransportPriority(priority int32) *QoS {
	q.transportPriority = priority
	return q
}

// ResourceLimits sets the transport resource limits
func (q *QoS) ResourceLimits(maxSamples, maxInstances, maxSamplesPerInstance int32) *QoS {
	q.maxSamples = maxSamples
	q.maxInstances = maxInstances
	q.maxSamplesPerInst = maxSamplesPerInstance
	q.resourceLimitsSetup = true
	return q
}

// GetReliability reads the reliability setting; nil handles read defaults
func (q *QoS) GetReliability() Reliability {
	if q == nil {
		return ReliabilityDefault
	}
	return q.reliability
}

// GetDurability reads the durability setting
func (q *QoS) GetDurability() Durability {
	if q == nil {
		return DurabilityDefault
	}
	return q.durability
}

// GetLiveliness reads the liveliness setting
func (q *QoS) GetLiveliness() Liveliness {
	if q == nil {
		return LivelinessDefault
	}
	return q.liveliness
}

// GetHistoryDepth reads the KEEP_LAST depth; 0 means transport default
func (q *QoS) GetHistoryDepth() int {
	if q == nil {
		return 0
	}
	return q.historyDepth
}

// IsKeepAll reports whether KEEP_ALL history was requested
func (q *QoS) IsKeepAll() bool {
	return q != nil && q.historyKeepAll
}

// GetDeadlineNs reads the deadline period
func (q *QoS) GetDeadlineNs() uint64 {
	if q == nil {
		return 0
	}
	return q.deadlineNs
}

// GetLifespanNs reads the sample lifespan
func (q *QoS) GetLifespanNs() uint64 {
	if q == nil {
		return 0
	}
	return q.lifespanNs
}

// GetLivelinessLeaseNs reads the liveliness lease
func (q *QoS) GetLivelinessLeaseNs() uint64 {
	if q == nil {
		return 0
	}
	return q.livelinessLeaseNs
}

// GetPartition reads the partition name
func (q *QoS) GetPartition() string {
	if q == nil {
		return ""
	}
	return q.partition
}
