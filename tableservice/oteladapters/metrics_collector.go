package oteladapters

import (
	"context"
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
)

var metricDescriptions = map[string]string{
	"tableservice_operation_duration_seconds": "Duration of table service operations",
	"tableservice_rows_returned_total":        "Rows returned by the last read operation",
	"tableservice_errors_total":               "Failed table service operations",
	"tableservice_buffer_hits_total":          "Reads answered from the result buffer",
	"tableservice_buffer_misses_total":        "Reads that had to query storage",
	"tableservice_slug_cache_hits_total":      "Slugs answered from the slug cache",
	"tableservice_slug_cache_misses_total":    "Slugs that had to be resolved",
}

// MetricsCollector implements tableservice.ContextualMetricsCollector with the OpenTelemetry metrics API:
//   - RecordDuration -> Float64Histogram in seconds
//   - IncrementCounter -> Int64Counter
//   - RecordValue -> Float64Gauge
//
// Instruments are created on first use. A collector may be shared by services on different goroutines.
type MetricsCollector struct {
	meter      metric.Meter
	histograms *xsync.MapOf[string, metric.Float64Histogram]
	counters   *xsync.MapOf[string, metric.Int64Counter]
	gauges     *xsync.MapOf[string, metric.Float64Gauge]
}

func NewMetricsCollector(meter metric.Meter) *MetricsCollector {
	return &MetricsCollector{
		meter:      meter,
		histograms: xsync.NewMapOf[string, metric.Float64Histogram](),
		counters:   xsync.NewMapOf[string, metric.Int64Counter](),
		gauges:     xsync.NewMapOf[string, metric.Float64Gauge](),
	}
}

func (m *MetricsCollector) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	m.RecordDurationContext(context.Background(), metricName, duration, labels)
}

func (m *MetricsCollector) RecordDurationContext(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	labels map[string]string,
) {

	histogram, ok := m.histogram(metricName)
	if !ok {
		return
	}

	histogram.Record(ctx, duration.Seconds(), metric.WithAttributes(attributesOf(labels)...))
}

func (m *MetricsCollector) IncrementCounter(metricName string, labels map[string]string) {
	m.IncrementCounterContext(context.Background(), metricName, labels)
}

func (m *MetricsCollector) IncrementCounterContext(ctx context.Context, metricName string, labels map[string]string) {
	counter, ok := m.counter(metricName)
	if !ok {
		return
	}

	counter.Add(ctx, 1, metric.WithAttributes(attributesOf(labels)...))
}

func (m *MetricsCollector) RecordValue(metricName string, value float64, labels map[string]string) {
	m.RecordValueContext(context.Background(), metricName, value, labels)
}

func (m *MetricsCollector) RecordValueContext(ctx context.Context, metricName string, value float64, labels map[string]string) {
	gauge, ok := m.gauge(metricName)
	if !ok {
		return
	}

	gauge.Record(ctx, value, metric.WithAttributes(attributesOf(labels)...))
}

// Instrument creation errors drop the measurement; the OpenTelemetry SDK reports them through its error handler.

func (m *MetricsCollector) histogram(name string) (metric.Float64Histogram, bool) {
	var createErr error

	histogram, _ := m.histograms.LoadOrCompute(name, func() metric.Float64Histogram {
		h, err := m.meter.Float64Histogram(name, metric.WithDescription(describe(name)), metric.WithUnit("s"))
		createErr = err
		return h
	})

	if createErr != nil {
		m.histograms.Delete(name)
		return nil, false
	}

	return histogram, histogram != nil
}

func (m *MetricsCollector) counter(name string) (metric.Int64Counter, bool) {
	var createErr error

	counter, _ := m.counters.LoadOrCompute(name, func() metric.Int64Counter {
		c, err := m.meter.Int64Counter(name, metric.WithDescription(describe(name)))
		createErr = err
		return c
	})

	if createErr != nil {
		m.counters.Delete(name)
		return nil, false
	}

	return counter, counter != nil
}

func (m *MetricsCollector) gauge(name string) (metric.Float64Gauge, bool) {
	var createErr error

	gauge, _ := m.gauges.LoadOrCompute(name, func() metric.Float64Gauge {
		g, err := m.meter.Float64Gauge(name, metric.WithDescription(describe(name)))
		createErr = err
		return g
	})

	if createErr != nil {
		m.gauges.Delete(name)
		return nil, false
	}

	return gauge, gauge != nil
}

func describe(name string) string {
	if description, ok := metricDescriptions[name]; ok {
		return description
	}

	return "Table service metric"
}

// attributesOf converts labels into attributes sorted by key.
func attributesOf(labels map[string]string) []attribute.KeyValue {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(labels))
	for _, key := range keys {
		attrs = append(attrs, attribute.String(key, labels[key]))
	}

	return attrs
}

var _ tableservice.ContextualMetricsCollector = (*MetricsCollector)(nil)
