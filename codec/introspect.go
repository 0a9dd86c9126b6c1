package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/typesupport"
)

// EncodeMessage serializes msg using its introspection descriptor.
// msg must be a struct or pointer to struct matching desc.
func EncodeMessage(desc *typesupport.MessageDescriptor, msg any) ([]byte, error) {
	if desc == nil {
		return nil, errors.WrapInvalid(errors.ErrTypeless, "codec", "EncodeMessage", "check descriptor")
	}
	v := reflect.ValueOf(msg)
	for v.IsValid() && v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return nil, errors.WrapInvalid(
			fmt.Errorf("message must be a struct, got %T", msg),
			"codec", "EncodeMessage", "reflect message")
	}

	w := &writer{}
	if err := encodeStruct(w, desc, v); err != nil {
		return nil, err
	}
	return w.buf, nil
}

func encodeStruct(w *writer, desc *typesupport.MessageDescriptor, v reflect.Value) error {
	for _, f := range desc.Fields {
		if f.Index >= v.NumField() {
			return errors.WrapInvalid(
				fmt.Errorf("descriptor field %q has no struct member", f.Name),
				"codec", "EncodeMessage", "resolve field")
		}
		fv := v.Field(f.Index)
		if f.IsArray {
			// Slices carry a length prefix, fixed arrays do not. This
			// keeps the encoding identical to a raw binary copy for
			// fixed-size types.
			if fv.Kind() == reflect.Slice {
				w.putU32(uint32(fv.Len()))
			}
			for i := 0; i < fv.Len(); i++ {
				if err := encodeElem(w, f, fv.Index(i)); err != nil {
					return err
				}
			}
			continue
		}
		if err := encodeElem(w, f, fv); err != nil {
			return err
		}
	}
	return nil
}

func encodeElem(w *writer, f typesupport.Field, v reflect.Value) error {
	switch f.Kind {
	case typesupport.KindBool:
		w.putBool(v.Bool())
	case typesupport.KindInt8:
		w.putI8(int8(v.Int()))
	case typesupport.KindInt16:
		w.putI16(int16(v.Int()))
	case typesupport.KindInt32:
		w.putI32(int32(v.Int()))
	case typesupport.KindInt64:
		w.putI64(v.Int())
	case typesupport.KindUint8, typesupport.KindChar, typesupport.KindOctet:
		w.putU8(uint8(v.Uint()))
	case typesupport.KindUint16, typesupport.KindWChar:
		w.putU16(uint16(v.Uint()))
	case typesupport.KindUint32:
		w.putU32(uint32(v.Uint()))
	case typesupport.KindUint64:
		w.putU64(v.Uint())
	case typesupport.KindFloat32:
		w.putF32(float32(v.Float()))
	case typesupport.KindFloat64:
		w.putF64(v.Float())
	case typesupport.KindString, typesupport.KindWString:
		w.putString(v.String())
	case typesupport.KindMessage:
		if f.Nested == nil {
			return errors.WrapInvalid(
				fmt.Errorf("nested field %q has no descriptor", f.Name),
				"codec", "EncodeMessage", "resolve nested descriptor")
		}
		return encodeStruct(w, f.Nested, v)
	default:
		return errors.WrapInvalid(
			fmt.Errorf("field %q has unsupported kind %s", f.Name, f.Kind),
			"codec", "EncodeMessage", "encode field")
	}
	return nil
}

// DecodeMessage deserializes data into msg using its introspection
// descriptor. msg must be a pointer to a struct matching desc. Trailing
// bytes beyond the message are ignored.
func DecodeMessage(desc *typesupport.MessageDescriptor, data []byte, msg any) error {
	if desc == nil {
		return errors.WrapInvalid(errors.ErrTypeless, "codec", "DecodeMessage", "check descriptor")
	}
	v := reflect.ValueOf(msg)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return errors.WrapInvalid(
			fmt.Errorf("message must be a pointer to struct, got %T", msg),
			"codec", "DecodeMessage", "reflect message")
	}

	r := &reader{data: data}
	if err := decodeStruct(r, desc, v.Elem()); err != nil {
		return err
	}
	return r.err
}

func decodeStruct(r *reader, desc *typesupport.MessageDescriptor, v reflect.Value) error {
	for _, f := range desc.Fields {
		if r.err != nil {
			return r.err
		}
		if f.Index >= v.NumField() {
			return errors.WrapInvalid(
				fmt.Errorf("descriptor field %q has no struct member", f.Name),
				"codec", "DecodeMessage", "resolve field")
		}
		fv := v.Field(f.Index)
		if f.IsArray {
			switch fv.Kind() {
			case reflect.Slice:
				n := r.count()
				if r.err != nil {
					return r.err
				}
				if n == 0 {
					fv.Set(reflect.Zero(fv.Type()))
					continue
				}
				fv.Set(reflect.MakeSlice(fv.Type(), n, n))
				for i := 0; i < n; i++ {
					if err := decodeElem(r, f, fv.Index(i)); err != nil {
						return err
					}
				}
			case reflect.Array:
				for i := 0; i < fv.Len(); i++ {
					if err := decodeElem(r, f, fv.Index(i)); err != nil {
						return err
					}
				}
			default:
				return errors.WrapInvalid(
					fmt.Errorf("field %q is not a slice or array", f.Name),
					"codec", "DecodeMessage", "resolve field")
			}
			continue
		}
		if err := decodeElem(r, f, fv); err != nil {
			return err
		}
	}
	return r.err
}

func decodeElem(r *reader, f typesupport.Field, v reflect.Value) error {
	switch f.Kind {
	case typesupport.KindBool:
		v.SetBool(r.bool())
	case typesupport.KindInt8:
		v.SetInt(int64(r.i8()))
	case typesupport.KindInt16:
		v.SetInt(int64(r.i16()))
	case typesupport.KindInt32:
		v.SetInt(int64(r.i32()))
	case typesupport.KindInt64:
		v.SetInt(r.i64())
	case typesupport.KindUint8, typesupport.KindChar, typesupport.KindOctet:
		v.SetUint(uint64(r.u8()))
	case typesupport.KindUint16, typesupport.KindWChar:
		v.SetUint(uint64(r.u16()))
	case typesupport.KindUint32:
		v.SetUint(uint64(r.u32()))
	case typesupport.KindUint64:
		v.SetUint(r.u64())
	case typesupport.KindFloat32:
		v.SetFloat(float64(r.f32()))
	case typesupport.KindFloat64:
		v.SetFloat(r.f64())
	case typesupport.KindString, typesupport.KindWString:
		v.SetString(r.string())
	case typesupport.KindMessage:
		if f.Nested == nil {
			return errors.WrapInvalid(
				fmt.Errorf("nested field %q has no descriptor", f.Name),
				"codec", "DecodeMessage", "resolve nested descriptor")
		}
		return decodeStruct(r, f.Nested, v)
	default:
		return errors.WrapInvalid(
			fmt.Errorf("field %q has unsupported kind %s", f.Name, f.Kind),
			"codec", "DecodeMessage", "decode field")
	}
	return r.err
}

// EncodeRaw copies a fixed-size message straight to packed bytes. It
// fails for types carrying strings or sequences.
func EncodeRaw(msg any) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, msg); err != nil {
		return nil, errors.WrapInvalid(err, "codec", "EncodeRaw", "copy message")
	}
	return buf.Bytes(), nil
}

// DecodeRaw copies packed bytes into a fixed-size message.
func DecodeRaw(data []byte, msg any) error {
	if size := binary.Size(msg); size > 0 && len(data) < size {
		return errors.WrapInvalid(errors.ErrShortPayload, "codec", "DecodeRaw", "check payload size")
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, msg); err != nil {
		return errors.WrapInvalid(err, "codec", "DecodeRaw", "copy message")
	}
	return nil
}

// DecodeDynamic deserializes data into msg using the descriptor
// registered under typeName in the process-wide dynamic type registry.
func DecodeDynamic(typeName string, data []byte, msg any) error {
	desc := typesupport.LookupDynamicType(typeName)
	if desc == nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: no dynamic descriptor for %q", errors.ErrNotRegistered, typeName),
			"codec", "DecodeDynamic", "look up type")
	}
	return DecodeMessage(desc, data, msg)
}
