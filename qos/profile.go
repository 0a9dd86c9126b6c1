package qos

import "math"

// Duration is a seconds/nanoseconds QoS duration
type Duration struct {
	Sec  uint64
	Nsec uint64
}

// DurationInfinite is the infinite-duration sentinel
var DurationInfinite = Duration{Sec: math.MaxUint64, Nsec: math.MaxUint64}

// DurationUnspecified keeps the transport default
var DurationUnspecified = Duration{}

// IsInfinite reports whether the duration is the infinite sentinel
func (d Duration) IsInfinite() bool {
	return d.Sec == math.MaxUint64
}

// IsUnspecified reports whether the duration keeps the transport default
func (d Duration) IsUnspecified() bool {
	return d.Sec == 0 && d.Nsec == 0
}

// Nanos collapses the duration to nanoseconds: 0 for unspecified,
// MaxUint64 for infinite, saturating on overflow otherwise.
func (d Duration) Nanos() uint64 {
	if d.IsUnspecified() {
		return 0
	}
	if d.IsInfinite() {
		return math.MaxUint64
	}
	if d.Sec > (math.MaxUint64-d.Nsec)/1e9 {
		return math.MaxUint64
	}
	return d.Sec*1e9 + d.Nsec
}

// DurationFromNanos builds a Duration from nanoseconds
func DurationFromNanos(ns uint64) Duration {
	if ns == math.MaxUint64 {
		return DurationInfinite
	}
	return Duration{Sec: ns / 1e9, Nsec: ns % 1e9}
}

// History selects the sample history policy
type History int

// History values
const (
	HistorySystemDefault History = iota
	HistoryKeepLast
	HistoryKeepAll
	HistoryUnknown
)

// Reliability selects the delivery guarantee
type Reliability int

// Reliability values
const (
	ReliabilitySystemDefault Reliability = iota
	ReliabilityReliable
	ReliabilityBestEffort
	ReliabilityUnknown
)

// Durability selects late-joiner sample availability
type Durability int

// Durability values
const (
	DurabilitySystemDefault Durability = iota
	DurabilityTransientLocal
	DurabilityVolatile
	DurabilityUnknown
)

// Liveliness selects how a writer asserts aliveness
type Liveliness int

// Liveliness values
const (
	LivelinessSystemDefault Liveliness = iota
	LivelinessAutomatic
	LivelinessManualByTopic
	LivelinessUnknown
)

// Profile is the framework's QoS profile. It is plain data; endpoints
// store a copy and graph endpoint records embed one.
type Profile struct {
	History         History
	Depth           int
	Reliability     Reliability
	Durability      Durability
	Deadline        Duration
	Lifespan        Duration
	Liveliness      Liveliness
	LivelinessLease Duration
}

// Default returns the profile used when callers pass no explicit QoS:
// keep-last 10, reliable, volatile.
func Default() Profile {
	return Profile{
		History:     HistoryKeepLast,
		Depth:       10,
		Reliability: ReliabilityReliable,
		Durability:  DurabilityVolatile,
		Liveliness:  LivelinessAutomatic,
	}
}

// ServicesDefault returns the profile used for service and client
// endpoints: keep-last 10, reliable, volatile.
func ServicesDefault() Profile {
	return Default()
}

// SensorData returns a best-effort profile suitable for high-rate
// sensor topics: keep-last 5, best-effort, volatile.
func SensorData() Profile {
	return Profile{
		History:     HistoryKeepLast,
		Depth:       5,
		Reliability: ReliabilityBestEffort,
		Durability:  DurabilityVolatile,
		Liveliness:  LivelinessAutomatic,
	}
}
