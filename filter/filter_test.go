package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/typesupport"
)

type diagnostic struct {
	Severity int32
	Count    uint32
	Ratio    float64
	Source   string
	Active   bool
	Tags     []string
}

func diagnosticDescriptor(t *testing.T) *typesupport.MessageDescriptor {
	t.Helper()
	d, err := typesupport.DescriptorFor("demo_msgs__msg", "Diagnostic", &diagnostic{})
	require.NoError(t, err)
	return d
}

func TestParse_ValidExpressions(t *testing.T) {
	desc := diagnosticDescriptor(t)

	tests := []struct {
		name       string
		expression string
		parameters []string
	}{
		{"double equals", "severity == %0", []string{"3"}},
		{"single equals", "severity = %0", []string{"3"}},
		{"not equals", "severity != %0", []string{"3"}},
		{"greater equal", "severity >= %0", []string{"3"}},
		{"less equal", "severity <= %0", []string{"3"}},
		{"no spaces", "severity>=%0", []string{"3"}},
		{"surrounding whitespace", "  severity >= %0  ", []string{"3"}},
		{"hex parameter", "count == %0", []string{"0x10"}},
		{"second parameter", "severity > %1", []string{"9", "2"}},
		{"string equality", "source == %0", []string{"imu"}},
		{"bool field", "active == %0", []string{"true"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.expression, test.parameters, desc)
			assert.NoError(t, err)
		})
	}
}

func TestParse_Rejections(t *testing.T) {
	desc := diagnosticDescriptor(t)

	tests := []struct {
		name       string
		expression string
		parameters []string
	}{
		{"unknown field", "bogus == %0", []string{"1"}},
		{"array field", "tags == %0", []string{"x"}},
		{"missing percent", "severity == 0", []string{"1"}},
		{"missing operator", "severity %0", []string{"1"}},
		{"index out of range", "severity == %1", []string{"1"}},
		{"trailing garbage", "severity == %0 extra", []string{"1"}},
		{"double space", "severity  == %0", []string{"1"}},
		{"ordered string compare", "source >= %0", []string{"imu"}},
		{"bad bool", "active == %0", []string{"maybe"}},
		{"bad integer", "severity == %0", []string{"three"}},
		{"empty expression", "", []string{"1"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.expression, test.parameters, desc)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err), "expected invalid classification, got %v", err)
		})
	}
}

func TestParse_NilDescriptor(t *testing.T) {
	_, err := Parse("severity == %0", []string{"1"}, nil)
	assert.ErrorIs(t, err, errors.ErrFilterUnsupported)
}

// TestEvaluate_SeverityThreshold mirrors the canonical acceptance case:
// filter "severity >= %0" with parameter "3" over severities 1..5.
func TestEvaluate_SeverityThreshold(t *testing.T) {
	desc := diagnosticDescriptor(t)
	f, err := Parse("severity >= %0", []string{"3"}, desc)
	require.NoError(t, err)

	var delivered []int32
	for severity := int32(1); severity <= 5; severity++ {
		if f.Evaluate(&diagnostic{Severity: severity}) {
			delivered = append(delivered, severity)
		}
	}
	assert.Equal(t, []int32{3, 4, 5}, delivered)
}

func TestEvaluate_Operators(t *testing.T) {
	desc := diagnosticDescriptor(t)

	tests := []struct {
		expression string
		parameters []string
		msg        diagnostic
		expected   bool
	}{
		{"severity == %0", []string{"3"}, diagnostic{Severity: 3}, true},
		{"severity == %0", []string{"3"}, diagnostic{Severity: 4}, false},
		{"severity != %0", []string{"3"}, diagnostic{Severity: 4}, true},
		{"severity < %0", []string{"0"}, diagnostic{Severity: -1}, true},
		{"count > %0", []string{"10"}, diagnostic{Count: 11}, true},
		{"count <= %0", []string{"10"}, diagnostic{Count: 11}, false},
		{"ratio >= %0", []string{"0.5"}, diagnostic{Ratio: 0.75}, true},
		{"ratio < %0", []string{"0.5"}, diagnostic{Ratio: 0.75}, false},
		{"source == %0", []string{"imu"}, diagnostic{Source: "imu"}, true},
		{"source != %0", []string{"imu"}, diagnostic{Source: "gps"}, true},
		{"active == %0", []string{"true"}, diagnostic{Active: true}, true},
		{"active != %0", []string{"1"}, diagnostic{Active: true}, false},
	}

	for _, test := range tests {
		t.Run(test.expression, func(t *testing.T) {
			f, err := Parse(test.expression, test.parameters, desc)
			require.NoError(t, err)
			assert.Equal(t, test.expected, f.Evaluate(&test.msg))
		})
	}
}

func TestEvaluate_NilFilterMatchesAll(t *testing.T) {
	var f *Filter
	assert.True(t, f.Evaluate(&diagnostic{}))
}

// TestRoundTrip re-parses each filter's canonical expression and checks
// both compiled forms agree on every probe message.
func TestRoundTrip(t *testing.T) {
	desc := diagnosticDescriptor(t)

	expressions := []struct {
		expression string
		parameters []string
	}{
		{"severity >= %0", []string{"3"}},
		{"severity=%0", []string{"-2"}},
		{"count != %0", []string{"7"}},
		{"ratio < %0", []string{"1.25"}},
		{"source == %0", []string{"imu"}},
	}

	probes := []diagnostic{
		{Severity: -2, Count: 7, Ratio: 1.25, Source: "imu"},
		{Severity: 3, Count: 8, Ratio: 0.5, Source: "gps"},
		{Severity: 5, Count: 0, Ratio: 2.0, Source: ""},
	}

	for _, e := range expressions {
		t.Run(e.expression, func(t *testing.T) {
			f, err := Parse(e.expression, e.parameters, desc)
			require.NoError(t, err)

			reparsed, err := Parse(f.Expression(), f.Parameters(), desc)
			require.NoError(t, err, "canonical form %q must re-parse", f.Expression())

			for _, probe := range probes {
				p := probe
				assert.Equal(t, f.Evaluate(&p), reparsed.Evaluate(&p),
					"filter %q vs %q on %+v", e.expression, f.Expression(), probe)
			}
		})
	}
}
