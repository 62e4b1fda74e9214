package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
	"github.com/AntonStoeckl/tableservice-go/tableservice/oteladapters"
	"github.com/AntonStoeckl/tableservice-go/tableservice/sqlengine"
	"github.com/AntonStoeckl/tableservice-go/testutil/helper"
)

func Test_Service_ShouldReportOperationsToOpenTelemetry(t *testing.T) {
	// arrange
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	_, conn := helper.NewSQLiteConnection(t)
	service, err := sqlengine.NewService(conn, "products",
		sqlengine.WithTracing(oteladapters.NewTracingCollector(tracerProvider.Tracer("tableservice"))),
		sqlengine.WithMetrics(oteladapters.NewMetricsCollector(meterProvider.Meter("tableservice"))),
	)
	require.NoError(t, err)

	// act
	_, err = service.Insert(ctx, tableservice.Record{"name": "Red Shoe"})
	require.NoError(t, err)
	_, err = service.Insert(ctx, tableservice.Record{"id": 1})
	require.Error(t, err)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "tableservice.insert", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assertSpanHasAttribute(t, spans[0], "table", "products")
	assertSpanHasAttribute(t, spans[0], "record_id", "1")
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assertSpanHasAttribute(t, spans[1], "error_type", "validation")

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &resourceMetrics))
	durations := findMetric(t, resourceMetrics, "tableservice_operation_duration_seconds")
	histogram, ok := durations.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, histogram.DataPoints, 2, "one data point per status")
	errorsTotal := findMetric(t, resourceMetrics, "tableservice_errors_total")
	assert.NotNil(t, errorsTotal.Data)
}
