package typesupport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sensorReading struct {
	Severity int32
	Value    float64
	Label    string
	Flags    []uint8
}

type pose struct {
	X float64
	Y float64
	Z float64
}

func TestDescriptorFor_Fields(t *testing.T) {
	d, err := DescriptorFor("demo_msgs__msg", "SensorReading", &sensorReading{})
	require.NoError(t, err)

	require.Len(t, d.Fields, 4)
	assert.Equal(t, "severity", d.Fields[0].Name)
	assert.Equal(t, KindInt32, d.Fields[0].Kind)
	assert.Equal(t, "value", d.Fields[1].Name)
	assert.Equal(t, KindFloat64, d.Fields[1].Kind)
	assert.Equal(t, "label", d.Fields[2].Name)
	assert.Equal(t, KindString, d.Fields[2].Kind)
	assert.True(t, d.Fields[3].IsArray)

	// Strings and slices rule out a fixed size
	assert.Equal(t, 0, d.FixedSize)
}

func TestDescriptorFor_FixedSize(t *testing.T) {
	d, err := DescriptorFor("demo_msgs__msg", "Pose", &pose{})
	require.NoError(t, err)
	assert.Equal(t, 24, d.FixedSize)
}

func TestDescriptorFor_RejectsNonStruct(t *testing.T) {
	_, err := DescriptorFor("x", "Y", 42)
	require.Error(t, err)
}

func TestTypeName_Materialization(t *testing.T) {
	tests := []struct {
		namespace string
		name      string
		expected  string
	}{
		{"std_msgs__msg", "String", "std_msgs/msg/String"},
		{"rcl_interfaces__msg", "Log", "rcl_interfaces/msg/Log"},
		{"a__b__c", "D", "a/b/c/D"},
		{"", "Bare", "Bare"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			d := &MessageDescriptor{Namespace: test.namespace, Name: test.name}
			assert.Equal(t, test.expected, d.TypeName())
		})
	}
}

func TestNormalizeTopic(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"/chatter", "chatter"},
		{"chatter", "chatter"},
		{"/", "/"},
		{"/ns/topic", "ns/topic"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, NormalizeTopic(test.in), "topic %q", test.in)
	}
}

func TestServiceTopics(t *testing.T) {
	assert.Equal(t, "rq/add_two_ints", ServiceRequestTopic("add_two_ints"))
	assert.Equal(t, "rr/add_two_ints", ServiceResponseTopic("add_two_ints"))
	assert.Equal(t, "rq/demo/add", ServiceRequestTopic("/demo/add"))
	assert.Equal(t, "rr/demo/add", ServiceResponseTopic("/demo/add"))
}

func TestFieldValue(t *testing.T) {
	d, err := DescriptorFor("demo_msgs__msg", "SensorReading", &sensorReading{})
	require.NoError(t, err)

	msg := &sensorReading{Severity: 3, Label: "hot"}

	f, ok := d.Field("severity")
	require.True(t, ok)
	v, ok := FieldValue(msg, f)
	require.True(t, ok)
	assert.Equal(t, int64(3), v.Int())

	f, ok = d.Field("label")
	require.True(t, ok)
	v, ok = FieldValue(msg, f)
	require.True(t, ok)
	assert.Equal(t, "hot", v.String())

	_, ok = d.Field("missing")
	assert.False(t, ok)
}

func TestDynamicRegistry(t *testing.T) {
	d, err := DescriptorFor("demo_msgs__msg", "Pose", &pose{})
	require.NoError(t, err)

	name := d.TypeName()
	require.False(t, HasTypeDescriptor(name))

	RegisterDynamicType(d)
	defer UnregisterDynamicType(name)

	assert.True(t, HasTypeDescriptor(name))
	assert.Same(t, d, LookupDynamicType(name))
}

func TestTypeSupport_AlternateFamily(t *testing.T) {
	alt, err := DescriptorFor("demo_msgs__msg", "Pose", &pose{})
	require.NoError(t, err)

	ts := NewWithAlternate(nil, alt, func() any { return &pose{} })
	require.NotNil(t, ts.Introspection())
	assert.Equal(t, "demo_msgs/msg/Pose", ts.TypeName())
	assert.Equal(t, 24, ts.FixedSize())

	_, ok := ts.NewMessage().(*pose)
	assert.True(t, ok)
}
