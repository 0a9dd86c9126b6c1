package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreMetricsRegistered(t *testing.T) {
	r := NewMetricsRegistry()
	m := r.CoreMetrics()
	require.NotNil(t, m)

	m.RecordPublish("chatter", "fast")
	m.RecordPublish("chatter", "fast")
	m.RecordTake("chatter", "queue")
	m.RecordGraphVersion(7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesPublished.WithLabelValues("chatter", "fast")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesTaken.WithLabelValues("chatter", "queue")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.GraphVersion))
}

func TestRegisterCollector(t *testing.T) {
	r := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "custom_counter_total",
		Help: "test counter",
	})
	require.NoError(t, r.RegisterCollector("echo", "custom_counter", counter))

	// Same key must be rejected
	err := r.RegisterCollector("echo", "custom_counter", counter)
	require.Error(t, err)

	assert.True(t, r.Unregister("echo", "custom_counter"))
	assert.False(t, r.Unregister("echo", "custom_counter"))
}

func TestRecordHelpersDoNotPanic(t *testing.T) {
	m := NewMetricsRegistry().CoreMetrics()

	m.RecordPublishRetry("chatter")
	m.RecordPublishDuration("chatter", 0)
	m.RecordShortBuffer()
	m.RecordFilterReject("rosout")
	m.RecordWakeup("data")
	m.RecordEndpointCount("publisher", 3)
	m.RecordFallbackDepth("chatter", 12)
	m.RecordServiceExchange("add_two_ints", "request")
	m.RecordError("rmw", "transient")
}
