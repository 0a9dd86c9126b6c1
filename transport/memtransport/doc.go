// Package memtransport is the in-process reference transport.
//
// All readers and writers created from one Context exchange samples
// through per-topic hubs guarded by the context lock. The package
// implements the full transport.Context surface, including reliable
// backpressure, transient-local replay for late-joining readers, a
// single-slot shared-memory fast path, and the wait aggregate backed by
// a broadcast channel.
//
// It is the transport used by the test suite and by single-process
// deployments; natstransport covers the distributed case.
package memtransport
