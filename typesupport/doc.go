// Package typesupport describes message types to the rest of DDSBridge.
//
// A TypeSupport bundles an introspection descriptor (field names, kinds
// and nesting, discovered by reflection or declared by hand) with a
// constructor for the message's Go type. Endpoints keep a TypeSupport per
// (topic, type) pair; the codec and filter packages read its descriptor
// to encode, decode and evaluate messages without knowing their concrete
// types.
//
// The package also owns the naming rules shared across the module:
// topic normalization, the rq/rr service-topic prefixes, and the
// materialization of namespace segments into slash-separated type names
// (namespace "std_msgs__msg" + name "String" -> "std_msgs/msg/String").
//
// A process-wide dynamic-type registry maps materialized type names to
// descriptors so that take paths can decode samples for types whose
// TypeSupport arrived without introspection.
package typesupport
