package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatherMetricNames collects all metric names from the default registry.
func gatherMetricNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	return names
}

// getCounterValue retrieves the current value of a counter with the given
// labels. For single-label (topic only) metrics, pass group as "".
func getCounterValue(t *testing.T, metricName, topic, group string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, fam := range families {
		if fam.GetName() != metricName {
			continue
		}
		for _, m := range fam.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["topic"] == topic && (group == "" || labels["consumer_group"] == group) {
				if m.GetCounter() != nil {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

// getHistogramCount retrieves the sample count for a histogram metric.
func getHistogramCount(t *testing.T, metricName, topic, group string) uint64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, fam := range families {
		if fam.GetName() != metricName {
			continue
		}
		for _, m := range fam.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["topic"] == topic && (group == "" || labels["consumer_group"] == group) {
				if m.GetHistogram() != nil {
					return m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return 0
}

func TestKafkaMetrics_Registered(t *testing.T) {
	// Counters only appear in Gather() once a label combination exists.
	ConsumerMessagesReceived.WithLabelValues("reg-topic", "reg-group")
	ConsumerMessagesProcessed.WithLabelValues("reg-topic", "reg-group")
	ConsumerMessagesFailed.WithLabelValues("reg-topic", "reg-group")
	ConsumerProcessingDuration.WithLabelValues("reg-topic", "reg-group")
	ConsumerDLQPublished.WithLabelValues("reg-topic", "reg-group")
	ConsumerMessagesDuplicate.WithLabelValues("reg-topic")
	ProducerMessagesPublished.WithLabelValues("reg-topic")
	ProducerPublishErrors.WithLabelValues("reg-topic")
	ProducerPublishDuration.WithLabelValues("reg-topic")

	names := gatherMetricNames(t)

	for _, name := range []string{
		"kafka_consumer_messages_received_total",
		"kafka_consumer_messages_processed_total",
		"kafka_consumer_messages_failed_total",
		"kafka_consumer_processing_duration_seconds",
		"kafka_consumer_messages_duplicate_total",
		"kafka_consumer_dlq_published_total",
		"kafka_producer_messages_published_total",
		"kafka_producer_publish_errors_total",
		"kafka_producer_publish_duration_seconds",
	} {
		assert.True(t, names[name], "expected metric %q to be registered", name)
	}
}

func TestConsumerMetrics_IncrementAndCollect(t *testing.T) {
	// Unique labels so parallel-running tests cannot interfere.
	topic := "metrics-test-consumer-topic"
	group := "metrics-test-consumer-group"

	initialProcessed := getCounterValue(t, "kafka_consumer_messages_processed_total", topic, group)
	initialFailed := getCounterValue(t, "kafka_consumer_messages_failed_total", topic, group)
	initialReceived := getCounterValue(t, "kafka_consumer_messages_received_total", topic, group)

	ConsumerMessagesProcessed.WithLabelValues(topic, group).Inc()
	ConsumerMessagesProcessed.WithLabelValues(topic, group).Inc()
	ConsumerMessagesProcessed.WithLabelValues(topic, group).Inc()
	ConsumerMessagesFailed.WithLabelValues(topic, group).Inc()
	ConsumerMessagesReceived.WithLabelValues(topic, group).Add(5)
	ConsumerProcessingDuration.WithLabelValues(topic, group).Observe(0.123)

	assert.InDelta(t, initialProcessed+3, getCounterValue(t, "kafka_consumer_messages_processed_total", topic, group), 0.001)
	assert.InDelta(t, initialFailed+1, getCounterValue(t, "kafka_consumer_messages_failed_total", topic, group), 0.001)
	assert.InDelta(t, initialReceived+5, getCounterValue(t, "kafka_consumer_messages_received_total", topic, group), 0.001)

	histogramCount := getHistogramCount(t, "kafka_consumer_processing_duration_seconds", topic, group)
	assert.GreaterOrEqual(t, histogramCount, uint64(1))
}

func TestProducerMetrics_IncrementAndCollect(t *testing.T) {
	topic := "metrics-test-producer-topic"

	initialPublished := getCounterValue(t, "kafka_producer_messages_published_total", topic, "")
	initialErrors := getCounterValue(t, "kafka_producer_publish_errors_total", topic, "")

	ProducerMessagesPublished.WithLabelValues(topic).Inc()
	ProducerMessagesPublished.WithLabelValues(topic).Inc()
	ProducerPublishErrors.WithLabelValues(topic).Inc()
	ProducerPublishDuration.WithLabelValues(topic).Observe(0.05)

	assert.InDelta(t, initialPublished+2, getCounterValue(t, "kafka_producer_messages_published_total", topic, ""), 0.001)
	assert.InDelta(t, initialErrors+1, getCounterValue(t, "kafka_producer_publish_errors_total", topic, ""), 0.001)

	histogramCount := getHistogramCount(t, "kafka_producer_publish_duration_seconds", topic, "")
	assert.GreaterOrEqual(t, histogramCount, uint64(1))
}

func TestConsumerMessagesDuplicate_IncrementedOnSkip(t *testing.T) {
	const topic = "metrics-test-duplicate-topic"

	initial := getCounterValue(t, "kafka_consumer_messages_duplicate_total", topic, "")

	store := NewMemoryIdempotencyStore(time.Minute)
	handler := IdempotentHandler(store, func(ctx context.Context, event *Event) error {
		return nil
	}, testLogger())

	event := &Event{EventID: "evt-metrics-dup", EventType: topic}
	require.NoError(t, handler(context.Background(), event))
	require.NoError(t, handler(context.Background(), event))
	require.NoError(t, handler(context.Background(), event))

	// First delivery processes, the two redeliveries count as duplicates.
	assert.InDelta(t, initial+2, getCounterValue(t, "kafka_consumer_messages_duplicate_total", topic, ""), 0.001)
}

func TestMetrics_DescriptionsMentionKafka(t *testing.T) {
	ConsumerMessagesProcessed.WithLabelValues("help-topic", "help-group")
	ConsumerMessagesDuplicate.WithLabelValues("help-topic")
	ConsumerDLQPublished.WithLabelValues("help-topic", "help-group")
	ProducerMessagesPublished.WithLabelValues("help-topic")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	helpByName := make(map[string]string)
	for _, fam := range families {
		helpByName[fam.GetName()] = fam.GetHelp()
	}

	for _, name := range []string{
		"kafka_consumer_messages_processed_total",
		"kafka_consumer_messages_duplicate_total",
		"kafka_consumer_dlq_published_total",
		"kafka_producer_messages_published_total",
	} {
		help, exists := helpByName[name]
		assert.True(t, exists, "metric %q not found in gathered families", name)
		assert.NotEmpty(t, help, "metric %q should have a help string", name)
	}
}
