package notifications

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "notifications"

// busMetrics holds the OpenTelemetry instruments a Bus reports through.
// A nil *busMetrics (the zero value returned when no MeterProvider is
// configured) makes every method a no-op, so instrumentation is always
// optional.
type busMetrics struct {
	published   metric.Int64Counter
	failed      metric.Int64Counter
	subscribers metric.Int64UpDownCounter
	queueDepth  metric.Int64Histogram
}

// newBusMetrics builds the bus's instruments against mp, or returns nil if
// mp is nil (metrics disabled).
func newBusMetrics(mp metric.MeterProvider) *busMetrics {
	if mp == nil {
		return nil
	}
	meter := mp.Meter(meterName, metric.WithInstrumentationVersion("v1"))

	m := new(busMetrics)
	var err error

	if m.published, err = meter.Int64Counter(
		"events_published_total",
		metric.WithDescription("Total number of successful event deliveries, counted once per receiving subscriber"),
	); err != nil {
		return nil
	}
	if m.failed, err = meter.Int64Counter(
		"events_publish_failed_total",
		metric.WithDescription("Total number of failed event deliveries, counted once per failing subscriber"),
	); err != nil {
		return nil
	}
	if m.subscribers, err = meter.Int64UpDownCounter(
		"active_subscribers",
		metric.WithDescription("Number of currently registered subscribers"),
	); err != nil {
		return nil
	}
	if m.queueDepth, err = meter.Int64Histogram(
		"subscriber_queue_depth",
		metric.WithDescription("Queued event count observed per subscriber at publish time"),
	); err != nil {
		return nil
	}
	return m
}

func (m *busMetrics) recordSubscribe() {
	if m == nil {
		return
	}
	m.subscribers.Add(context.Background(), 1)
}

func (m *busMetrics) recordUnsubscribe() {
	if m == nil {
		return
	}
	m.subscribers.Add(context.Background(), -1)
}

func (m *busMetrics) recordPublish(kind string, delivered int, failed int) {
	if m == nil {
		return
	}
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	if delivered > 0 {
		m.published.Add(ctx, int64(delivered), attrs)
	}
	if failed > 0 {
		m.failed.Add(ctx, int64(failed), attrs)
	}
}

func (m *busMetrics) recordQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Record(context.Background(), int64(depth))
}
