package main

import (
	"context"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/tableservice-go/example/shared/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func printJSON(w io.Writer, value any) error {
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(out))

	return err
}

// printTelemetry writes the finished spans and the collected metric points.
func printTelemetry(ctx context.Context, w io.Writer, providers *config.ObservabilityProviders) error {
	for _, span := range providers.Spans() {
		_, _ = fmt.Fprintf(w, "span %-32s %s\n", span.Name, span.EndTime.Sub(span.StartTime))
	}

	rm, err := providers.Metrics(ctx)
	if err != nil {
		return err
	}

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			_, _ = fmt.Fprintf(w, "metric %-40s %s\n", m.Name, summarize(m.Data))
		}
	}

	return nil
}

func summarize(data metricdata.Aggregation) string {
	switch d := data.(type) {
	case metricdata.Histogram[float64]:
		var count uint64
		var sum float64
		for _, point := range d.DataPoints {
			count += point.Count
			sum += point.Sum
		}

		return fmt.Sprintf("count=%d sum=%.4f", count, sum)
	case metricdata.Sum[int64]:
		var total int64
		for _, point := range d.DataPoints {
			total += point.Value
		}

		return fmt.Sprintf("total=%d", total)
	case metricdata.Gauge[float64]:
		parts := make([]float64, 0, len(d.DataPoints))
		for _, point := range d.DataPoints {
			parts = append(parts, point.Value)
		}

		return fmt.Sprintf("values=%v", parts)
	default:
		return fmt.Sprintf("%T", data)
	}
}
