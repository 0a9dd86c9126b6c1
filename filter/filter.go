package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/typesupport"
)

// Op is a relational operator code
type Op uint8

// Operator codes
const (
	OpEQ Op = iota
	OpNE
	OpGE
	OpLE
	OpGT
	OpLT
)

// String returns the operator's expression form
func (op Op) String() string {
	switch op {
	case OpEQ:
		return "=="
	case OpNE:
		return "!="
	case OpGE:
		return ">="
	case OpLE:
		return "<="
	case OpGT:
		return ">"
	case OpLT:
		return "<"
	default:
		return "?"
	}
}

// ValueKind tags a coerced parameter value
type ValueKind uint8

// Value kinds
const (
	ValueBool ValueKind = iota
	ValueSigned
	ValueUnsigned
	ValueDouble
	ValueString
)

// Value is a typed parameter value coerced from its parameter string
type Value struct {
	Kind     ValueKind
	Bool     bool
	Signed   int64
	Unsigned uint64
	Double   float64
	Str      string
}

// Filter is a compiled content filter: one field, one operator, one
// coerced parameter. A compiled filter is immutable; resets build a new
// one and swap it in atomically at the subscription.
type Filter struct {
	field      typesupport.Field
	op         Op
	paramIndex int
	param      Value
	expression string
	parameters []string
}

// Parse compiles an expression against a message descriptor.
// parameters supplies the substitution strings referenced as %0, %1, ...
func Parse(
	expression string,
	parameters []string,
	desc *typesupport.MessageDescriptor,
) (*Filter, error) {
	if desc == nil {
		return nil, errors.WrapInvalid(errors.ErrFilterUnsupported,
			"Filter", "Parse", "filter without introspection")
	}

	p := &parser{s: strings.TrimSpace(expression)}

	fieldName, ok := p.ident()
	if !ok {
		return nil, parseErr(expression, "expected field name")
	}
	p.singleSpace()
	op, ok := p.operator()
	if !ok {
		return nil, parseErr(expression, "expected relational operator")
	}
	p.singleSpace()
	index, ok := p.paramIndex()
	if !ok {
		return nil, parseErr(expression, "expected %%N parameter reference")
	}
	if !p.done() {
		return nil, parseErr(expression, "trailing input")
	}

	field, ok := desc.Field(fieldName)
	if !ok {
		return nil, parseErr(expression, fmt.Sprintf("unknown field %q", fieldName))
	}
	if field.IsArray {
		return nil, errors.WrapInvalid(errors.ErrFilterUnsupported,
			"Filter", "Parse", "arrays and sequences")
	}
	if index >= len(parameters) {
		return nil, parseErr(expression,
			fmt.Sprintf("parameter index %%%d out of range (%d parameters)", index, len(parameters)))
	}

	param, err := coerce(parameters[index], field.Kind)
	if err != nil {
		return nil, err
	}

	if field.Kind == typesupport.KindString && op != OpEQ && op != OpNE {
		return nil, errors.WrapInvalid(errors.ErrFilterUnsupported,
			"Filter", "Parse", "ordered comparison on string field")
	}

	return &Filter{
		field:      field,
		op:         op,
		paramIndex: index,
		param:      param,
		expression: expression,
		parameters: append([]string(nil), parameters...),
	}, nil
}

func parseErr(expression, detail string) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s in %q", errors.ErrFilterParse, detail, expression),
		"Filter", "Parse", "parse expression")
}

// coerce converts a parameter string to a typed value by the field's kind
func coerce(s string, kind typesupport.FieldKind) (Value, error) {
	switch {
	case kind == typesupport.KindBool:
		switch strings.ToLower(s) {
		case "true", "1":
			return Value{Kind: ValueBool, Bool: true}, nil
		case "false", "0":
			return Value{Kind: ValueBool, Bool: false}, nil
		}
		return Value{}, errors.WrapInvalid(
			fmt.Errorf("%w: boolean parameter %q", errors.ErrFilterParse, s),
			"Filter", "Parse", "coerce parameter")

	case kind.IsUnsigned():
		u, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return Value{}, errors.WrapInvalid(
				fmt.Errorf("%w: unsigned parameter %q", errors.ErrFilterParse, s),
				"Filter", "Parse", "coerce parameter")
		}
		return Value{Kind: ValueUnsigned, Unsigned: u}, nil

	case kind.IsSigned():
		i, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return Value{}, errors.WrapInvalid(
				fmt.Errorf("%w: signed parameter %q", errors.ErrFilterParse, s),
				"Filter", "Parse", "coerce parameter")
		}
		return Value{Kind: ValueSigned, Signed: i}, nil

	case kind.IsFloat():
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, errors.WrapInvalid(
				fmt.Errorf("%w: float parameter %q", errors.ErrFilterParse, s),
				"Filter", "Parse", "coerce parameter")
		}
		return Value{Kind: ValueDouble, Double: f}, nil

	case kind == typesupport.KindString:
		return Value{Kind: ValueString, Str: s}, nil

	default:
		// wstring, nested messages and unknown kinds are not filterable
		return Value{}, errors.WrapInvalid(errors.ErrFilterUnsupported,
			"Filter", "Parse", "filter on "+kind.String()+" field")
	}
}

// Evaluate applies the filter to one message. A message whose field kind
// no longer matches the compiled parameter evaluates to false.
func (f *Filter) Evaluate(msg any) bool {
	if f == nil {
		return true
	}

	v, ok := typesupport.FieldValue(msg, f.field)
	if !ok {
		return false
	}

	switch f.param.Kind {
	case ValueBool:
		if f.field.Kind != typesupport.KindBool {
			return false
		}
		return f.compareUnsigned(boolBit(v.Bool()), boolBit(f.param.Bool))
	case ValueUnsigned:
		if !f.field.Kind.IsUnsigned() {
			return false
		}
		return f.compareUnsigned(v.Uint(), f.param.Unsigned)
	case ValueSigned:
		if !f.field.Kind.IsSigned() {
			return false
		}
		return f.compareSigned(v.Int(), f.param.Signed)
	case ValueDouble:
		if !f.field.Kind.IsFloat() {
			return false
		}
		return f.compareDouble(v.Float(), f.param.Double)
	case ValueString:
		if f.field.Kind != typesupport.KindString {
			return false
		}
		s := v.String()
		if f.op == OpEQ {
			return s == f.param.Str
		}
		return s != f.param.Str
	default:
		return false
	}
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (f *Filter) compareSigned(a, b int64) bool {
	return f.applyOrdering(compare(a, b))
}

func (f *Filter) compareUnsigned(a, b uint64) bool {
	return f.applyOrdering(compare(a, b))
}

func (f *Filter) compareDouble(a, b float64) bool {
	switch {
	case a < b:
		return f.applyOrdering(-1)
	case a > b:
		return f.applyOrdering(1)
	case a == b:
		return f.applyOrdering(0)
	default:
		// NaN on either side never matches an ordered comparison
		return f.op == OpNE
	}
}

func compare[T int64 | uint64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (f *Filter) applyOrdering(c int) bool {
	switch f.op {
	case OpEQ:
		return c == 0
	case OpNE:
		return c != 0
	case OpGE:
		return c >= 0
	case OpLE:
		return c <= 0
	case OpGT:
		return c > 0
	case OpLT:
		return c < 0
	default:
		return false
	}
}

// Expression returns the canonical expression form of the compiled filter
func (f *Filter) Expression() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%s %s %%%d", f.field.Name, f.op, f.paramIndex)
}

// Parameters returns a copy of the parameter strings the filter was
// compiled with
func (f *Filter) Parameters() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.parameters...)
}

// parser is a single-cursor recursive-descent parser over the trimmed
// expression
type parser struct {
	s   string
	pos int
}

func (p *parser) done() bool {
	return p.pos >= len(p.s)
}

// singleSpace consumes at most one space between tokens
func (p *parser) singleSpace() {
	if !p.done() && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) ident() (string, bool) {
	start := p.pos
	for !p.done() {
		c := p.s[p.pos]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(p.pos > start && c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", false
	}
	return p.s[start:p.pos], true
}

func (p *parser) operator() (Op, bool) {
	two := map[string]Op{"==": OpEQ, "!=": OpNE, ">=": OpGE, "<=": OpLE}
	if p.pos+2 <= len(p.s) {
		if op, ok := two[p.s[p.pos:p.pos+2]]; ok {
			p.pos += 2
			return op, true
		}
	}
	if !p.done() {
		switch p.s[p.pos] {
		case '=':
			p.pos++
			return OpEQ, true
		case '>':
			p.pos++
			return OpGT, true
		case '<':
			p.pos++
			return OpLT, true
		}
	}
	return 0, false
}

func (p *parser) paramIndex() (int, bool) {
	if p.done() || p.s[p.pos] != '%' {
		return 0, false
	}
	p.pos++
	start := p.pos
	for !p.done() && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, false
	}
	n, err := strconv.Atoi(p.s[start:p.pos])
	if err != nil {
		return 0, false
	}
	return n, true
}
