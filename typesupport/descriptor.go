package typesupport

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"strings"

	"github.com/c360/ddsbridge/errors"
)

// FieldKind identifies the primitive (or nested) type of one message field
type FieldKind uint8

// Field kinds understood by the codec and filter packages
const (
	KindUnknown FieldKind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindChar
	KindOctet
	KindWChar
	KindString
	KindWString
	KindMessage
)

// String returns the string representation of FieldKind
func (k FieldKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindChar:
		return "char"
	case KindOctet:
		return "octet"
	case KindWChar:
		return "wchar"
	case KindString:
		return "string"
	case KindWString:
		return "wstring"
	case KindMessage:
		return "message"
	default:
		return "unknown"
	}
}

// IsUnsigned reports whether the kind compares with unsigned semantics
func (k FieldKind) IsUnsigned() bool {
	switch k {
	case KindUint8, KindUint16, KindUint32, KindUint64, KindChar, KindOctet, KindWChar:
		return true
	}
	return false
}

// IsSigned reports whether the kind compares with signed semantics
func (k FieldKind) IsSigned() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

// IsFloat reports whether the kind compares with floating-point semantics
func (k FieldKind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// Field describes one member of a message
type Field struct {
	// Name is the member name as it appears in filter expressions
	Name string
	// Kind is the element type
	Kind FieldKind
	// IsArray marks slices and arrays; content filters reject these
	IsArray bool
	// Nested carries the descriptor for KindMessage elements
	Nested *MessageDescriptor
	// Index is the struct field index used for reflective access
	Index int
}

// MessageDescriptor is the runtime introspection descriptor for one
// message type: its namespace, leaf name, and members in wire order.
type MessageDescriptor struct {
	// Namespace uses double-underscore segment separators, e.g. "std_msgs__msg"
	Namespace string
	// Name is the leaf type name, e.g. "String"
	Name string
	// Fields lists members in declaration (wire) order
	Fields []Field
	// FixedSize is the packed byte size when every member is a
	// fixed-size primitive, 0 otherwise. Non-zero enables the raw
	// copy fast path.
	FixedSize int
}

// TypeName materializes the slash-separated type name. Namespace
// segments separated by "__" convert to "/" with a trailing slash
// ensured before the leaf name.
func (d *MessageDescriptor) TypeName() string {
	if d.Namespace == "" {
		return d.Name
	}
	ns := strings.ReplaceAll(d.Namespace, "__", "/")
	if !strings.HasSuffix(ns, "/") {
		ns += "/"
	}
	return ns + d.Name
}

// Field looks up a member by name
func (d *MessageDescriptor) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// TypeSupport bundles the introspection descriptors and the constructor
// for one message type. The alternate descriptor covers the parallel
// introspection family: lookups consult the primary first, then the
// alternate.
type TypeSupport struct {
	desc  *MessageDescriptor
	alt   *MessageDescriptor
	newFn func() any
}

// New creates a TypeSupport from a descriptor and a message constructor.
// Either may be nil; a TypeSupport with no descriptor at all is
// "type-less" and only usable through fast codecs or raw copies.
func New(desc *MessageDescriptor, newFn func() any) *TypeSupport {
	return &TypeSupport{desc: desc, newFn: newFn}
}

// NewWithAlternate creates a TypeSupport carrying both introspection
// family descriptors.
func NewWithAlternate(desc, alt *MessageDescriptor, newFn func() any) *TypeSupport {
	return &TypeSupport{desc: desc, alt: alt, newFn: newFn}
}

// Introspection returns the first available descriptor, or nil
func (ts *TypeSupport) Introspection() *MessageDescriptor {
	if ts == nil {
		return nil
	}
	if ts.desc != nil {
		return ts.desc
	}
	return ts.alt
}

// TypeName returns the materialized type name, or "" without a descriptor
func (ts *TypeSupport) TypeName() string {
	d := ts.Introspection()
	if d == nil {
		return ""
	}
	return d.TypeName()
}

// FixedSize returns the packed size usable for raw copies, or 0
func (ts *TypeSupport) FixedSize() int {
	d := ts.Introspection()
	if d == nil {
		return 0
	}
	return d.FixedSize
}

// NewMessage allocates a zero message of the supported type
func (ts *TypeSupport) NewMessage() any {
	if ts == nil || ts.newFn == nil {
		return nil
	}
	return ts.newFn()
}

// DescriptorFor derives a MessageDescriptor from a sample Go struct by
// reflection. The sample must be a struct or pointer to struct; exported
// fields become members in declaration order.
func DescriptorFor(namespace, name string, sample any) (*MessageDescriptor, error) {
	t := reflect.TypeOf(sample)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, errors.WrapInvalid(
			fmt.Errorf("sample must be a struct, got %T", sample),
			"TypeSupport", "DescriptorFor", "reflect sample")
	}

	d := &MessageDescriptor{Namespace: namespace, Name: name}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		f, err := fieldFor(sf, i)
		if err != nil {
			return nil, err
		}
		d.Fields = append(d.Fields, f)
	}

	// binary.Size is -1 for anything with strings or slices, which is
	// exactly the set of types the raw copy path must reject
	if size := binary.Size(reflect.New(t).Elem().Interface()); size > 0 {
		d.FixedSize = size
	}

	return d, nil
}

func fieldFor(sf reflect.StructField, index int) (Field, error) {
	name := snakeCase(sf.Name)
	ft := sf.Type

	f := Field{Name: name, Index: index}
	if ft.Kind() == reflect.Slice || ft.Kind() == reflect.Array {
		f.IsArray = true
		ft = ft.Elem()
	}

	switch ft.Kind() {
	case reflect.Bool:
		f.Kind = KindBool
	case reflect.Int8:
		f.Kind = KindInt8
	case reflect.Int16:
		f.Kind = KindInt16
	case reflect.Int32:
		f.Kind = KindInt32
	case reflect.Int64:
		f.Kind = KindInt64
	case reflect.Uint8:
		f.Kind = KindUint8
	case reflect.Uint16:
		f.Kind = KindUint16
	case reflect.Uint32:
		f.Kind = KindUint32
	case reflect.Uint64:
		f.Kind = KindUint64
	case reflect.Float32:
		f.Kind = KindFloat32
	case reflect.Float64:
		f.Kind = KindFloat64
	case reflect.String:
		f.Kind = KindString
	case reflect.Struct:
		nested, err := DescriptorFor("", ft.Name(), reflect.New(ft).Interface())
		if err != nil {
			return Field{}, err
		}
		f.Kind = KindMessage
		f.Nested = nested
	default:
		return Field{}, errors.WrapInvalid(
			fmt.Errorf("unsupported field type %s for %s", ft.Kind(), sf.Name),
			"TypeSupport", "DescriptorFor", "map field kind")
	}

	return f, nil
}

// FieldValue resolves a descriptor field on a concrete message by
// reflection. msg must be a pointer to the struct the descriptor was
// derived from.
func FieldValue(msg any, f Field) (reflect.Value, bool) {
	v := reflect.ValueOf(msg)
	for v.IsValid() && v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if !v.IsValid() || v.Kind() != reflect.Struct || f.Index >= v.NumField() {
		return reflect.Value{}, false
	}
	return v.Field(f.Index), true
}

// snakeCase converts an exported Go field name to the snake_case member
// name used in descriptors and filter expressions.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
