package codec

import (
	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/typesupport"
)

// Serialize encodes msg through the codec ladder: fast codec by type
// name, then introspection, then raw copy for fixed-size types without
// field tables. Type-less supports fail with errors.ErrTypeless.
func Serialize(ts *typesupport.TypeSupport, msg any) ([]byte, error) {
	if kind := KindForType(ts.TypeName()); kind != KindNone {
		if data, err := EncodeFast(kind, msg); err == nil {
			return data, nil
		}
	}
	if desc := ts.Introspection(); desc != nil {
		if len(desc.Fields) > 0 {
			return EncodeMessage(desc, msg)
		}
		if desc.FixedSize > 0 {
			return EncodeRaw(msg)
		}
	}
	return nil, errors.WrapInvalid(errors.ErrTypeless, "codec", "Serialize", "resolve encoder")
}

// Deserialize decodes data into msg through the same ladder as
// Serialize, falling back to the dynamic type registry when the support
// carries a type name but no usable descriptor.
func Deserialize(ts *typesupport.TypeSupport, data []byte, msg any) error {
	if kind := KindForType(ts.TypeName()); kind != KindNone {
		if err := DecodeFast(kind, data, msg); err == nil {
			return nil
		} else if errors.Is(err, errors.ErrShortPayload) {
			return err
		}
	}
	if desc := ts.Introspection(); desc != nil {
		if len(desc.Fields) > 0 {
			return DecodeMessage(desc, data, msg)
		}
		if desc.FixedSize > 0 {
			return DecodeRaw(data, msg)
		}
	}
	if name := ts.TypeName(); name != "" && typesupport.HasTypeDescriptor(name) {
		return DecodeDynamic(name, data, msg)
	}
	return errors.WrapInvalid(errors.ErrTypeless, "codec", "Deserialize", "resolve decoder")
}
