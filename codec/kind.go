package codec

import "github.com/c360/ddsbridge/typesupport"

// Kind selects a fast codec, or none.
type Kind int

// Fast codec kinds
const (
	KindNone Kind = iota
	KindString
	KindLog
	KindParameterEvent
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindLog:
		return "log"
	case KindParameterEvent:
		return "parameter_event"
	default:
		return "none"
	}
}

// KindForTopic maps a topic to its fast codec by the conventional topic
// names. The topic is normalized first, so "/chatter" and "chatter"
// select the same codec.
func KindForTopic(topic string) Kind {
	switch typesupport.NormalizeTopic(topic) {
	case "chatter":
		return KindString
	case "rosout":
		return KindLog
	case "parameter_events":
		return KindParameterEvent
	default:
		return KindNone
	}
}

// KindForType maps a materialized type name to its fast codec.
func KindForType(typeName string) Kind {
	switch typeName {
	case "std_msgs/msg/String":
		return KindString
	case "rcl_interfaces/msg/Log":
		return KindLog
	case "rcl_interfaces/msg/ParameterEvent":
		return KindParameterEvent
	default:
		return KindNone
	}
}
