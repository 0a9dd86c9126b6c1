package codec

import (
	"fmt"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/msgs"
)

// EncodeFast serializes msg with the hand-rolled codec for kind. The
// message must be the matching shape from package msgs.
func EncodeFast(kind Kind, msg any) ([]byte, error) {
	switch kind {
	case KindString:
		if m, ok := msg.(*msgs.String); ok {
			return encodeString(m), nil
		}
	case KindLog:
		if m, ok := msg.(*msgs.Log); ok {
			return encodeLog(m), nil
		}
	case KindParameterEvent:
		if m, ok := msg.(*msgs.ParameterEvent); ok {
			return encodeParameterEvent(m), nil
		}
	}
	return nil, errors.WrapInvalid(
		fmt.Errorf("message %T does not match codec %s", msg, kind),
		"codec", "EncodeFast", "match message shape")
}

// DecodeFast deserializes data with the hand-rolled codec for kind into
// msg, which must be the matching shape from package msgs.
func DecodeFast(kind Kind, data []byte, msg any) error {
	r := &reader{data: data}
	switch kind {
	case KindString:
		if m, ok := msg.(*msgs.String); ok {
			decodeString(r, m)
			return r.err
		}
	case KindLog:
		if m, ok := msg.(*msgs.Log); ok {
			decodeLog(r, m)
			return r.err
		}
	case KindParameterEvent:
		if m, ok := msg.(*msgs.ParameterEvent); ok {
			decodeParameterEvent(r, m)
			return r.err
		}
	}
	return errors.WrapInvalid(
		fmt.Errorf("message %T does not match codec %s", msg, kind),
		"codec", "DecodeFast", "match message shape")
}

func encodeString(m *msgs.String) []byte {
	w := &writer{buf: make([]byte, 0, 4+len(m.Data))}
	w.putString(m.Data)
	return w.buf
}

func decodeString(r *reader, m *msgs.String) {
	m.Data = r.string()
}

func putTime(w *writer, t msgs.Time) {
	w.putI32(t.Sec)
	w.putU32(t.Nanosec)
}

func getTime(r *reader) msgs.Time {
	return msgs.Time{Sec: r.i32(), Nanosec: r.u32()}
}

func encodeLog(m *msgs.Log) []byte {
	w := &writer{}
	putTime(w, m.Stamp)
	w.putU8(m.Level)
	w.putString(m.Name)
	w.putString(m.Msg)
	w.putString(m.File)
	w.putString(m.Function)
	w.putU32(m.Line)
	return w.buf
}

func decodeLog(r *reader, m *msgs.Log) {
	m.Stamp = getTime(r)
	m.Level = r.u8()
	m.Name = r.string()
	m.Msg = r.string()
	m.File = r.string()
	m.Function = r.string()
	m.Line = r.u32()
}

// putParameterValue writes every member of the tagged union in
// declaration order, matching the introspection encoding.
func putParameterValue(w *writer, v msgs.ParameterValue) {
	w.putU8(v.Type)
	w.putBool(v.BoolValue)
	w.putI64(v.IntegerValue)
	w.putF64(v.DoubleValue)
	w.putString(v.StringValue)
	w.putU32(uint32(len(v.ByteArrayValue)))
	w.buf = append(w.buf, v.ByteArrayValue...)
	w.putU32(uint32(len(v.BoolArrayValue)))
	for _, b := range v.BoolArrayValue {
		w.putBool(b)
	}
	w.putU32(uint32(len(v.IntegerArrayValue)))
	for _, i := range v.IntegerArrayValue {
		w.putI64(i)
	}
	w.putU32(uint32(len(v.DoubleArrayValue)))
	for _, d := range v.DoubleArrayValue {
		w.putF64(d)
	}
	w.putU32(uint32(len(v.StringArrayValue)))
	for _, s := range v.StringArrayValue {
		w.putString(s)
	}
}

func getParameterValue(r *reader) msgs.ParameterValue {
	var v msgs.ParameterValue
	v.Type = r.u8()
	v.BoolValue = r.bool()
	v.IntegerValue = r.i64()
	v.DoubleValue = r.f64()
	v.StringValue = r.string()
	if n := r.count(); n > 0 {
		v.ByteArrayValue = append([]uint8(nil), r.take(n)...)
	}
	if n := r.count(); n > 0 {
		v.BoolArrayValue = make([]bool, n)
		for i := range v.BoolArrayValue {
			v.BoolArrayValue[i] = r.bool()
		}
	}
	if n := r.count(); n > 0 {
		v.IntegerArrayValue = make([]int64, n)
		for i := range v.IntegerArrayValue {
			v.IntegerArrayValue[i] = r.i64()
		}
	}
	if n := r.count(); n > 0 {
		v.DoubleArrayValue = make([]float64, n)
		for i := range v.DoubleArrayValue {
			v.DoubleArrayValue[i] = r.f64()
		}
	}
	if n := r.count(); n > 0 {
		v.StringArrayValue = make([]string, n)
		for i := range v.StringArrayValue {
			v.StringArrayValue[i] = r.string()
		}
	}
	return v
}

func putParameters(w *writer, params []msgs.Parameter) {
	w.putU32(uint32(len(params)))
	for _, p := range params {
		w.putString(p.Name)
		putParameterValue(w, p.Value)
	}
}

func getParameters(r *reader) []msgs.Parameter {
	n := r.count()
	if n == 0 {
		return nil
	}
	params := make([]msgs.Parameter, n)
	for i := range params {
		params[i].Name = r.string()
		params[i].Value = getParameterValue(r)
	}
	return params
}

func encodeParameterEvent(m *msgs.ParameterEvent) []byte {
	w := &writer{}
	putTime(w, m.Stamp)
	w.putString(m.Node)
	putParameters(w, m.NewParameters)
	putParameters(w, m.ChangedParameters)
	putParameters(w, m.DeletedParameters)
	return w.buf
}

func decodeParameterEvent(r *reader, m *msgs.ParameterEvent) {
	m.Stamp = getTime(r)
	m.Node = r.string()
	m.NewParameters = getParameters(r)
	m.ChangedParameters = getParameters(r)
	m.DeletedParameters = getParameters(r)
}
