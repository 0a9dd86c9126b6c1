package rmw

import (
	"encoding/binary"

	"github.com/c360/ddsbridge/errors"
)

// requestHeaderSize is the fixed correlation prefix on every service
// sample: the 16-byte writer GUID followed by a little-endian int64
// sequence number.
const requestHeaderSize = 24

// RequestID correlates a service response with the request that caused
// it. The framework above treats (WriterGUID, Sequence) as the unique
// request key.
type RequestID struct {
	WriterGUID [16]byte
	Sequence   int64
}

// IsZero reports whether the id carries no correlation information
func (id RequestID) IsZero() bool {
	return id.Sequence == 0 && id.WriterGUID == [16]byte{}
}

// encodeRequestHeader prepends the correlation header to payload
func encodeRequestHeader(id RequestID, payload []byte) []byte {
	out := make([]byte, requestHeaderSize+len(payload))
	copy(out[:16], id.WriterGUID[:])
	binary.LittleEndian.PutUint64(out[16:24], uint64(id.Sequence))
	copy(out[requestHeaderSize:], payload)
	return out
}

// decodeRequestHeader splits a service sample into its correlation id
// and payload. Samples too short to hold the header, non-positive
// sequence numbers and all-zero writer GUIDs are all rejected.
func decodeRequestHeader(data []byte) (RequestID, []byte, error) {
	var id RequestID
	if len(data) < requestHeaderSize {
		return id, nil, errors.WrapInvalid(errors.ErrShortPayload, "Service", "decodeRequestHeader", "check sample length")
	}
	copy(id.WriterGUID[:], data[:16])
	id.Sequence = int64(binary.LittleEndian.Uint64(data[16:24]))
	if id.Sequence <= 0 {
		return RequestID{}, nil, errors.WrapInvalid(errors.ErrInvalidRequestID, "Service", "decodeRequestHeader", "check sequence number")
	}
	if id.WriterGUID == [16]byte{} {
		return RequestID{}, nil, errors.WrapInvalid(errors.ErrInvalidRequestID, "Service", "decodeRequestHeader", "check writer GUID")
	}
	return id, data[requestHeaderSize:], nil
}
