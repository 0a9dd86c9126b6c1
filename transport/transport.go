package transport

import (
	"context"
	"time"

	"github.com/c360/ddsbridge/graph"
	"github.com/c360/ddsbridge/typesupport"
)

// SampleInfo carries per-sample metadata delivered alongside take
type SampleInfo struct {
	// SourceGID identifies the writing endpoint, all-zero when unknown
	SourceGID [16]byte
	// SourceTimestampMs is the write time in Unix milliseconds, 0 when unknown
	SourceTimestampMs int64
}

// Reader is one subscription-side endpoint of a topic
type Reader interface {
	// Topic returns the topic this reader is bound to
	Topic() string

	// Take copies the next pending sample into buf and removes it from
	// the reader's queue. It returns errors.ErrNoSample when nothing is
	// pending and *errors.ShortBufferError carrying the required size
	// when buf is too small; in the short-buffer case the sample stays
	// queued so the caller can grow and retry.
	Take(buf []byte) (n int, info SampleInfo, err error)

	// HasData reports whether a sample is pending
	HasData() bool
}

// Writer is one publication-side endpoint of a topic
type Writer interface {
	// Topic returns the topic this writer is bound to
	Topic() string

	// Write delivers one serialized sample. Reliable writers report
	// errors.ErrWouldBlock when a matched reader's queue is full.
	Write(data []byte) error
}

// GuardCondition is a user-triggerable boolean attachable to a context's
// wait aggregate
type GuardCondition interface {
	// Trigger sets the flag and wakes any wait observing it
	Trigger()
	// IsTriggered reports the flag without clearing it
	IsTriggered() bool
	// Reset clears the flag
	Reset()
}

// Context is the transport-layer root for one process's presence in the
// domain. All readers, writers and guard conditions created from one
// context belong to it; handles must not cross contexts.
type Context interface {
	// Name returns the participant name the context was created with
	Name() string

	// GUIDPrefix returns the stable 12-byte participant identifier
	GUIDPrefix() [12]byte

	// Graph returns the process-local graph cache, fed by local
	// registration and (for distributed transports) by discovery
	Graph() *graph.Cache

	// RegisterNode announces a node into the graph
	RegisterNode(info graph.NodeInfo) error
	// UnregisterNode removes a node from the graph
	UnregisterNode(name, namespace string) error
	// RegisterPublisherEndpoint announces a publisher into the graph
	RegisterPublisherEndpoint(info graph.EndpointInfo) error
	// UnregisterPublisherEndpoint removes a publisher by GID
	UnregisterPublisherEndpoint(gid [16]byte) error
	// RegisterSubscriptionEndpoint announces a subscription into the graph
	RegisterSubscriptionEndpoint(info graph.EndpointInfo) error
	// UnregisterSubscriptionEndpoint removes a subscription by GID
	UnregisterSubscriptionEndpoint(gid [16]byte) error

	// CreateReader creates a reader on topic. A nil QoS means defaults.
	CreateReader(topic string, q *QoS) (Reader, error)
	// CreateWriter creates a writer on topic. A nil QoS means defaults.
	CreateWriter(topic string, q *QoS) (Writer, error)
	// DestroyReader releases a reader created by this context
	DestroyReader(r Reader) error
	// DestroyWriter releases a writer created by this context
	DestroyWriter(w Writer) error

	// CreateGuardCondition allocates a guard condition owned by this context
	CreateGuardCondition() (GuardCondition, error)
	// DestroyGuardCondition releases a guard condition
	DestroyGuardCondition(g GuardCondition) error

	// GraphGuardCondition returns the context-wide graph-change guard
	GraphGuardCondition() GuardCondition
	// SetGraphGuard sets or clears the graph-change guard atomically
	SetGraphGuard(triggered bool)

	// AttachReader adds a reader to the wait aggregate, returning a
	// detachment key
	AttachReader(r Reader) (uint64, error)
	// DetachReader removes a previously attached reader
	DetachReader(key uint64) error
	// AttachGuardCondition adds a guard to the wait aggregate
	AttachGuardCondition(g GuardCondition) (uint64, error)
	// DetachGuardCondition removes a previously attached guard
	DetachGuardCondition(key uint64) error

	// WaitReaders blocks until any reader in readers has data, any
	// attached guard condition is triggered, or the timeout expires.
	// timeout < 0 blocks until a condition fires, 0 polls. It returns
	// the sparse subset of readers with data plus whether the graph
	// guard contributed to the wakeup. Nil entries in readers are
	// skipped. A timeout is not an error: the ready set is just empty.
	WaitReaders(ctx context.Context, timeout time.Duration, readers []Reader) (ready []Reader, graphGuard bool, err error)

	// BindTopicType associates a topic with its type support so
	// discovery can expose resolved type names
	BindTopicType(topic string, ts *typesupport.TypeSupport) error

	// ShmHasData reports whether intra-host shared-memory data is
	// pending on topic
	ShmHasData(topic string) bool
	// ShmTryTake non-blockingly takes a shared-memory sample into buf.
	// ok=false means no sample was pending.
	ShmTryTake(topic string, buf []byte) (n int, ok bool, err error)

	// SerializeMessage encodes msg using the type support's descriptor
	SerializeMessage(ts *typesupport.TypeSupport, msg any) ([]byte, error)
	// DeserializeMessage decodes data into msg using the type support's
	// descriptor
	DeserializeMessage(ts *typesupport.TypeSupport, data []byte, msg any) error

	// Close destroys the context. Outstanding readers and writers are
	// released; subsequent operations fail.
	Close() error
}
