package rmw

import (
	"bytes"
	"encoding/binary"
	"sync/atomic"

	"github.com/google/uuid"
)

// GID is the 16-byte globally unique endpoint identifier: a 12-byte
// participant GUID prefix followed by a 4-byte entity tail.
type GID [16]byte

// IsZero reports whether the GID is all zero
func (g GID) IsZero() bool {
	return g == GID{}
}

// Prefix returns the participant GUID prefix portion
func (g GID) Prefix() [12]byte {
	var p [12]byte
	copy(p[:], g[:12])
	return p
}

// GIDEqual reports whether two GIDs carry the same 16 bytes
func GIDEqual(a, b GID) bool {
	return bytes.Equal(a[:], b[:])
}

// newGID builds an endpoint GID from the participant prefix and an
// entity-local tail. The prefix gives cross-process stability, the tail
// intra-participant uniqueness.
func newGID(prefix [12]byte, tail uint32) GID {
	var g GID
	copy(g[:12], prefix[:])
	binary.LittleEndian.PutUint32(g[12:], tail)
	return g
}

// writerGUIDCounter is shared process-wide so every client gets a
// distinct high half. It starts at 1; zero stays reserved.
var writerGUIDCounter atomic.Uint64

// newWriterGUID builds a client writer GUID: high 8 bytes from the
// process-wide counter, low 8 bytes random per instance.
func newWriterGUID() [16]byte {
	var g [16]byte
	binary.BigEndian.PutUint64(g[:8], writerGUIDCounter.Add(1))
	u := uuid.New()
	copy(g[8:], u[:8])
	return g
}
