package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/msgs"
	"github.com/c360/ddsbridge/typesupport"
)

func TestKindForTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  Kind
	}{
		{"chatter", KindString},
		{"/chatter", KindString},
		{"rosout", KindLog},
		{"/rosout", KindLog},
		{"parameter_events", KindParameterEvent},
		{"/parameter_events", KindParameterEvent},
		{"odom", KindNone},
		{"//chatter", KindNone},
		{"", KindNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindForTopic(tt.topic), "topic %q", tt.topic)
	}
}

func TestKindForType(t *testing.T) {
	assert.Equal(t, KindString, KindForType("std_msgs/msg/String"))
	assert.Equal(t, KindLog, KindForType("rcl_interfaces/msg/Log"))
	assert.Equal(t, KindParameterEvent, KindForType("rcl_interfaces/msg/ParameterEvent"))
	assert.Equal(t, KindNone, KindForType("nav_msgs/msg/Odometry"))
}

func TestFastMatchesIntrospection(t *testing.T) {
	str := &msgs.String{Data: "hello, world"}
	log := &msgs.Log{
		Stamp:    msgs.Time{Sec: 17, Nanosec: 500},
		Level:    msgs.LogWarn,
		Name:     "talker",
		Msg:      "sensor dropout",
		File:     "talker.go",
		Function: "run",
		Line:     42,
	}
	event := &msgs.ParameterEvent{
		Stamp: msgs.Time{Sec: 99},
		Node:  "/param_server",
		NewParameters: []msgs.Parameter{
			{Name: "rate", Value: msgs.ParameterValue{Type: msgs.ParameterInteger, IntegerValue: 30}},
		},
		ChangedParameters: []msgs.Parameter{
			{Name: "frame", Value: msgs.ParameterValue{Type: msgs.ParameterString, StringValue: "map"}},
			{Name: "gains", Value: msgs.ParameterValue{
				Type:             msgs.ParameterDoubleArray,
				DoubleArrayValue: []float64{0.5, 1.5, 2.5},
			}},
		},
	}

	tests := []struct {
		name string
		kind Kind
		msg  any
		desc *typesupport.MessageDescriptor
	}{
		{"string", KindString, str, msgs.StringTypeSupport().Introspection()},
		{"log", KindLog, log, msgs.LogTypeSupport().Introspection()},
		{"parameter_event", KindParameterEvent, event, msgs.ParameterEventTypeSupport().Introspection()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fast, err := EncodeFast(tt.kind, tt.msg)
			require.NoError(t, err)

			introspected, err := EncodeMessage(tt.desc, tt.msg)
			require.NoError(t, err)

			assert.Equal(t, introspected, fast, "fast and introspection bytes must match")
		})
	}
}

func TestFastRoundTrip(t *testing.T) {
	t.Run("string", func(t *testing.T) {
		in := &msgs.String{Data: "round trip"}
		data, err := EncodeFast(KindString, in)
		require.NoError(t, err)

		var out msgs.String
		require.NoError(t, DecodeFast(KindString, data, &out))
		assert.Equal(t, *in, out)
	})
	t.Run("log", func(t *testing.T) {
		in := &msgs.Log{Stamp: msgs.Time{Sec: 1, Nanosec: 2}, Level: msgs.LogError, Name: "n", Msg: "m", Line: 7}
		data, err := EncodeFast(KindLog, in)
		require.NoError(t, err)

		var out msgs.Log
		require.NoError(t, DecodeFast(KindLog, data, &out))
		assert.Equal(t, *in, out)
	})
	t.Run("parameter_event", func(t *testing.T) {
		in := &msgs.ParameterEvent{
			Node: "node",
			DeletedParameters: []msgs.Parameter{
				{Name: "old", Value: msgs.ParameterValue{Type: msgs.ParameterNotSet}},
			},
		}
		data, err := EncodeFast(KindParameterEvent, in)
		require.NoError(t, err)

		var out msgs.ParameterEvent
		require.NoError(t, DecodeFast(KindParameterEvent, data, &out))
		assert.Equal(t, *in, out)
	})
}

func TestFastShapeMismatch(t *testing.T) {
	_, err := EncodeFast(KindString, &msgs.Log{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	err = DecodeFast(KindLog, []byte{0}, &msgs.String{})
	require.Error(t, err)
}

func TestIntrospectionRoundTrip(t *testing.T) {
	type pose struct {
		X     float64
		Y     float64
		Theta float64
		Frame string
		Flags []uint8
	}
	desc, err := typesupport.DescriptorFor("test_msgs__msg", "Pose", &pose{})
	require.NoError(t, err)

	in := &pose{X: 1.5, Y: -2.25, Theta: 0.5, Frame: "odom", Flags: []uint8{1, 2, 3}}
	data, err := EncodeMessage(desc, in)
	require.NoError(t, err)

	var out pose
	require.NoError(t, DecodeMessage(desc, data, &out))
	assert.Equal(t, *in, out)
}

func TestDecodeShortPayload(t *testing.T) {
	var out msgs.Log
	err := DecodeFast(KindLog, []byte{1, 2, 3}, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrShortPayload))

	desc := msgs.StringTypeSupport().Introspection()
	var str msgs.String
	// Length prefix claims more bytes than the payload carries.
	err = DecodeMessage(desc, []byte{0xFF, 0xFF, 0xFF, 0xFF}, &str)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrShortPayload))
}

func TestRawMatchesIntrospection(t *testing.T) {
	in := msgs.Time{Sec: -3, Nanosec: 999}
	raw, err := EncodeRaw(&in)
	require.NoError(t, err)

	desc, err := typesupport.DescriptorFor("builtin_interfaces__msg", "Time", &msgs.Time{})
	require.NoError(t, err)
	require.Equal(t, 8, desc.FixedSize)

	introspected, err := EncodeMessage(desc, &in)
	require.NoError(t, err)
	assert.Equal(t, introspected, raw)

	var out msgs.Time
	require.NoError(t, DecodeRaw(raw, &out))
	assert.Equal(t, in, out)

	assert.True(t, errors.Is(DecodeRaw(raw[:4], &out), errors.ErrShortPayload))
}

func TestDecodeDynamic(t *testing.T) {
	type battery struct {
		Voltage float32
		Charge  float32
	}
	desc, err := typesupport.DescriptorFor("sensor_msgs__msg", "BatteryState", &battery{})
	require.NoError(t, err)

	name := desc.TypeName()
	var out battery
	err = DecodeDynamic(name, []byte{}, &out)
	require.Error(t, err, "unregistered type must fail")

	typesupport.RegisterDynamicType(desc)
	defer typesupport.UnregisterDynamicType(name)

	data, err := EncodeMessage(desc, &battery{Voltage: 12.6, Charge: 0.8})
	require.NoError(t, err)
	require.NoError(t, DecodeDynamic(name, data, &out))
	assert.Equal(t, float32(12.6), out.Voltage)
}

func TestFallbackBusFIFO(t *testing.T) {
	fb := NewFallbackBus(0)
	defer fb.Close()

	for _, s := range []string{"first", "second", "third"} {
		require.NoError(t, fb.Publish("/chatter", s))
	}
	assert.Equal(t, 3, fb.Depth("chatter"))

	for _, want := range []string{"first", "second", "third"} {
		got, ok := fb.Take("chatter")
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := fb.Take("chatter")
	assert.False(t, ok)
}

func TestFallbackBusDropsOldest(t *testing.T) {
	fb := NewFallbackBus(2)
	defer fb.Close()

	require.NoError(t, fb.Publish("chatter", "a"))
	require.NoError(t, fb.Publish("chatter", "b"))
	require.NoError(t, fb.Publish("chatter", "c"))

	got, ok := fb.Take("chatter")
	require.True(t, ok)
	assert.Equal(t, "b", got)
}

func TestFallbackBusTopicIsolation(t *testing.T) {
	fb := NewFallbackBus(0)
	defer fb.Close()

	require.NoError(t, fb.Publish("left", "l"))
	require.NoError(t, fb.Publish("right", "r"))

	_, ok := fb.Take("center")
	assert.False(t, ok)

	got, ok := fb.Take("right")
	require.True(t, ok)
	assert.Equal(t, "r", got)
	assert.Equal(t, 1, fb.Depth("left"))
}
