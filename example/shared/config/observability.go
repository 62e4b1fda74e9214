package config

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ObservabilityProviders holds in-process OpenTelemetry providers whose telemetry can be read back,
// which is what the demo CLI prints after a command.
type ObservabilityProviders struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Resource       *resource.Resource

	spans  *tracetest.InMemoryExporter
	reader *metric.ManualReader
}

// NewObservabilityProviders creates tracer and meter providers for serviceName.
func NewObservabilityProviders(ctx context.Context, serviceName, serviceVersion string) (*ObservabilityProviders, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	spans := tracetest.NewInMemoryExporter()
	reader := metric.NewManualReader()

	return &ObservabilityProviders{
		TracerProvider: trace.NewTracerProvider(trace.WithSyncer(spans), trace.WithResource(res)),
		MeterProvider:  metric.NewMeterProvider(metric.WithReader(reader), metric.WithResource(res)),
		Resource:       res,
		spans:          spans,
		reader:         reader,
	}, nil
}

// Spans returns the finished spans recorded so far.
func (p *ObservabilityProviders) Spans() tracetest.SpanStubs {
	return p.spans.GetSpans()
}

// Metrics collects the current state of all instruments.
func (p *ObservabilityProviders) Metrics(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	err := p.reader.Collect(ctx, &rm)

	return rm, err
}

// Shutdown gracefully shuts down the OpenTelemetry providers.
func (p *ObservabilityProviders) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return errors.Join(
		p.TracerProvider.Shutdown(ctx),
		p.MeterProvider.Shutdown(ctx),
	)
}
