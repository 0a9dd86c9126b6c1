// Package filter implements the single-field content filter applied on
// the read side to gate sample delivery.
//
// The expression language is deliberately tiny:
//
//	expr        := field OP '%' param_index
//	field       := IDENT
//	OP          := '==' | '=' | '!=' | '>=' | '<=' | '>' | '<'
//	param_index := unsigned integer
//
// The field must name a direct, non-array member of the message
// descriptor; the parameter string at param_index is coerced once at
// parse time to a typed value matching the field's kind. String fields
// accept only equality operators. Parsing failures leave any previously
// installed filter untouched; the rmw layer swaps compiled filters
// atomically.
package filter
