package codec

import (
	"encoding/binary"
	"math"

	"github.com/c360/ddsbridge/errors"
)

// writer accumulates packed little-endian bytes.
type writer struct {
	buf []byte
}

func (w *writer) putBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *writer) putU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) putU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *writer) putU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) putU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *writer) putI8(v int8)   { w.putU8(uint8(v)) }
func (w *writer) putI16(v int16) { w.putU16(uint16(v)) }
func (w *writer) putI32(v int32) { w.putU32(uint32(v)) }
func (w *writer) putI64(v int64) { w.putU64(uint64(v)) }

func (w *writer) putF32(v float32) { w.putU32(math.Float32bits(v)) }
func (w *writer) putF64(v float64) { w.putU64(math.Float64bits(v)) }

func (w *writer) putString(s string) {
	w.putU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// reader walks packed little-endian bytes. The first short read sticks
// as the error; subsequent gets return zero values.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = errors.WrapInvalid(errors.ErrShortPayload, "codec", "decode", "read bytes")
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) bool() bool {
	b := r.take(1)
	return b != nil && b[0] != 0
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) i8() int8   { return int8(r.u8()) }
func (r *reader) i16() int16 { return int16(r.u16()) }
func (r *reader) i32() int32 { return int32(r.u32()) }
func (r *reader) i64() int64 { return int64(r.u64()) }

func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }
func (r *reader) f64() float64 { return math.Float64frombits(r.u64()) }

func (r *reader) string() string {
	n := r.u32()
	b := r.take(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

// count reads a sequence length and sanity-checks it against the bytes
// left, assuming at least one byte per element.
func (r *reader) count() int {
	n := r.u32()
	if r.err == nil && int(n) > len(r.data)-r.off {
		r.err = errors.WrapInvalid(errors.ErrShortPayload, "codec", "decode", "read sequence length")
		return 0
	}
	return int(n)
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}
