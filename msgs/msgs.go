// Package msgs defines the well-known message shapes DDSBridge serves
// with hand-rolled fast codecs: String, Log and ParameterEvent. Their
// topics (chatter, rosout, parameter_events) are recognized by name when
// an endpoint is created without introspection, so these types stay
// publishable even for type-less endpoints.
package msgs

import (
	"sync"

	"github.com/c360/ddsbridge/typesupport"
)

// Time is a seconds/nanoseconds timestamp as carried on the wire
type Time struct {
	Sec     int32
	Nanosec uint32
}

// String is the std_msgs/msg/String shape
type String struct {
	Data string
}

// Log severity levels
const (
	LogDebug uint8 = 10
	LogInfo  uint8 = 20
	LogWarn  uint8 = 30
	LogError uint8 = 40
	LogFatal uint8 = 50
)

// Log is the rcl_interfaces/msg/Log shape: a timestamp, a severity
// level, four strings and a line number.
type Log struct {
	Stamp    Time
	Level    uint8
	Name     string
	Msg      string
	File     string
	Function string
	Line     uint32
}

// Parameter value type tags
const (
	ParameterNotSet       uint8 = 0
	ParameterBool         uint8 = 1
	ParameterInteger      uint8 = 2
	ParameterDouble       uint8 = 3
	ParameterString       uint8 = 4
	ParameterByteArray    uint8 = 5
	ParameterBoolArray    uint8 = 6
	ParameterIntegerArray uint8 = 7
	ParameterDoubleArray  uint8 = 8
	ParameterStringArray  uint8 = 9
)

// ParameterValue is a tagged parameter value. Type selects which member
// carries the payload.
type ParameterValue struct {
	Type              uint8
	BoolValue         bool
	IntegerValue      int64
	DoubleValue       float64
	StringValue       string
	ByteArrayValue    []uint8
	BoolArrayValue    []bool
	IntegerArrayValue []int64
	DoubleArrayValue  []float64
	StringArrayValue  []string
}

// Parameter is a named parameter value
type Parameter struct {
	Name  string
	Value ParameterValue
}

// ParameterEvent is the rcl_interfaces/msg/ParameterEvent shape: a
// timestamp, the originating node name, and three parameter sequences.
type ParameterEvent struct {
	Stamp             Time
	Node              string
	NewParameters     []Parameter
	ChangedParameters []Parameter
	DeletedParameters []Parameter
}

var (
	stringTS = sync.OnceValue(func() *typesupport.TypeSupport {
		return mustTypeSupport("std_msgs__msg", "String", func() any { return &String{} }, &String{})
	})
	logTS = sync.OnceValue(func() *typesupport.TypeSupport {
		return mustTypeSupport("rcl_interfaces__msg", "Log", func() any { return &Log{} }, &Log{})
	})
	parameterEventTS = sync.OnceValue(func() *typesupport.TypeSupport {
		return mustTypeSupport("rcl_interfaces__msg", "ParameterEvent",
			func() any { return &ParameterEvent{} }, &ParameterEvent{})
	})
)

// StringTypeSupport returns the shared TypeSupport for String
func StringTypeSupport() *typesupport.TypeSupport {
	return stringTS()
}

// LogTypeSupport returns the shared TypeSupport for Log
func LogTypeSupport() *typesupport.TypeSupport {
	return logTS()
}

// ParameterEventTypeSupport returns the shared TypeSupport for ParameterEvent
func ParameterEventTypeSupport() *typesupport.TypeSupport {
	return parameterEventTS()
}

func mustTypeSupport(namespace, name string, newFn func() any, sample any) *typesupport.TypeSupport {
	d, err := typesupport.DescriptorFor(namespace, name, sample)
	if err != nil {
		// The shapes above are fixed at compile time; a derivation
		// failure is a programming error.
		panic(err)
	}
	return typesupport.New(d, newFn)
}
