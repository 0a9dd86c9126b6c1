// Package codec serializes messages to the packed little-endian wire
// format and back.
//
// Three encoding paths exist, tried in this order by callers:
//
//   - Fast codecs: hand-rolled encoders for the well-known shapes in
//     package msgs (String, Log, ParameterEvent), selected by topic
//     name or type name.
//   - Introspection: descriptor-driven encoding via reflection, for
//     any type with a typesupport.MessageDescriptor.
//   - Raw copy: a straight binary copy for fixed-size types that carry
//     no strings or sequences.
//
// All three produce identical bytes for types they share: strings and
// sequences are length-prefixed with a uint32, primitives are packed
// little-endian with no alignment padding.
//
// The package also hosts the per-context fallback bus, a bounded
// per-topic queue that absorbs string samples when the transport queue
// stays full through the in-call retry window.
package codec
