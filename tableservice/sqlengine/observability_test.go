package sqlengine_test

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
	. "github.com/AntonStoeckl/tableservice-go/tableservice/sqlengine"
	"github.com/AntonStoeckl/tableservice-go/testutil/helper"
)

func newSpyLogger(handler *helper.LogHandlerSpy) *slog.Logger {
	return slog.New(handler)
}

func Test_Observability_ShouldReportSuccessfulOperations(t *testing.T) {
	// arrange
	ctx := context.Background()
	logHandler := helper.NewLogHandlerSpy(false)
	metrics := helper.NewMetricsCollectorSpy()
	tracing := helper.NewTracingCollectorSpy()
	_, service := newProductService(t,
		WithLogger(newSpyLogger(logHandler)),
		WithMetrics(metrics),
		WithTracing(tracing),
	)

	// act
	id, err := service.Insert(ctx, tableservice.Record{"name": "Red Shoe"})
	require.NoError(t, err)
	_, err = service.GetAll(ctx)
	require.NoError(t, err)

	// assert
	assert.True(t, logHandler.HasDebugLogWithMessage("executed sql for: insert").WithDurationMS().WithAttributeKey("query").Assert())
	assert.True(t, logHandler.HasInfoLogWithMessage("tableservice operation: insert completed").
		WithAttribute("table", productsTable).
		WithAttribute("record_id", "1").
		WithDurationMS().
		Assert())
	assert.True(t, logHandler.HasInfoLogWithMessage("tableservice operation: get_all completed").WithAttribute("row_count", "1").Assert())

	assert.True(t, metrics.HasDurationRecordForMetric("tableservice_operation_duration_seconds").
		WithOperation("insert").
		WithStatus("success").
		WithLabel("table", productsTable).
		Assert())
	assert.True(t, metrics.HasValueRecordForMetric("tableservice_rows_returned_total").WithOperation("get_all").Assert())
	assert.Zero(t, metrics.CountCounterRecordsForMetric("tableservice_errors_total"))

	assert.True(t, tracing.HasSpanRecordForName("tableservice.insert").
		WithStatus("success").
		WithStartAttribute("table", productsTable).
		WithSpanAttribute("record_id", "1").
		Assert())
	assert.True(t, tracing.HasSpanRecordForName("tableservice.get_all").WithSpanAttribute("row_count", "1").Assert())
	assert.Equal(t, int64(1), id)
}

func Test_Observability_ShouldReportRejectedInputAsWarning(t *testing.T) {
	// arrange
	logHandler := helper.NewLogHandlerSpy(false)
	metrics := helper.NewMetricsCollectorSpy()
	tracing := helper.NewTracingCollectorSpy()
	_, service := newProductService(t,
		WithContextualLogger(newSpyLogger(logHandler)),
		WithMetrics(metrics),
		WithTracing(tracing),
	)

	// act
	_, err := service.Insert(context.Background(), tableservice.Record{"id": 1, "name": "Red Shoe"})

	// assert
	require.ErrorIs(t, err, tableservice.ErrValidation)
	assert.True(t, logHandler.HasWarnLogWithMessage("tableservice operation rejected: insert").WithAttribute("error_type", "validation").Assert())
	assert.Zero(t, logHandler.CountRecordsWithLevel(slog.LevelError))
	assert.True(t, metrics.HasCounterRecordForMetric("tableservice_errors_total").
		WithOperation("insert").
		WithStatus("error").
		WithErrorType("validation").
		Assert())
	assert.True(t, metrics.HasDurationRecordForMetric("tableservice_operation_duration_seconds").WithStatus("error").Assert())
	assert.True(t, tracing.HasSpanRecordForName("tableservice.insert").WithStatus("error").WithSpanAttribute("error_type", "validation").Assert())
}

func Test_Observability_ShouldReportFailingCallbacksAsWarning(t *testing.T) {
	// arrange
	logHandler := helper.NewLogHandlerSpy(false)
	metrics := helper.NewMetricsCollectorSpy()
	_, service := newProductService(t, WithLogger(newSpyLogger(logHandler)), WithMetrics(metrics))
	service.OnBeforeDelete(func(context.Context, tableservice.Table, int64) error { return errors.New("vetoed") })

	// act
	_, err := service.DeleteByID(context.Background(), 1)

	// assert
	require.Error(t, err)
	assert.True(t, logHandler.HasWarnLogWithMessage("tableservice operation rejected: delete").WithAttribute("error", "vetoed").Assert())
	assert.True(t, metrics.HasCounterRecordForMetric("tableservice_errors_total").WithErrorType("callback").Assert())
}

func Test_Observability_ShouldReportDatabaseFailuresAsError(t *testing.T) {
	// arrange
	logHandler := helper.NewLogHandlerSpy(false)
	metrics := helper.NewMetricsCollectorSpy()
	mock, service := newMockedService(t, DialectSQLite3, WithLogger(newSpyLogger(logHandler)), WithMetrics(metrics))
	mock.ExpectQuery("SELECT").WillReturnError(sql.ErrConnDone)

	// act
	_, err := service.GetAll(context.Background())

	// assert
	require.Error(t, err)
	assert.True(t, logHandler.HasErrorLogWithMessage("database query execution failed").WithAttributeKey("query").Assert())
	assert.True(t, metrics.HasCounterRecordForMetric("tableservice_errors_total").
		WithOperation("get_all").
		WithErrorType("database_query").
		Assert())
}

func Test_Observability_ShouldCountBufferAndSlugCacheHits(t *testing.T) {
	// arrange
	ctx := context.Background()
	metrics := helper.NewMetricsCollectorSpy()
	db, service := newProductService(t, WithMetrics(metrics))
	id := helper.GivenProduct(t, db, "Red Shoe", "red-shoe", 1)

	// act
	for range 3 {
		_, err := service.GetCount(ctx)
		require.NoError(t, err)
		_, _, err = service.SlugOut(ctx, tableservice.SlugOfID(id))
		require.NoError(t, err)
	}

	// assert
	assert.Equal(t, 1, metrics.CountCounterRecordsForMetric("tableservice_buffer_misses_total"))
	assert.Equal(t, 2, metrics.CountCounterRecordsForMetric("tableservice_buffer_hits_total"))
	assert.Equal(t, 1, metrics.CountCounterRecordsForMetric("tableservice_slug_cache_misses_total"))
	assert.Equal(t, 2, metrics.CountCounterRecordsForMetric("tableservice_slug_cache_hits_total"))
	assert.True(t, metrics.HasCounterRecordForMetric("tableservice_buffer_hits_total").WithOperation("get_count").Assert())
}

func Test_Observability_ShouldLogToBothLoggers(t *testing.T) {
	// arrange
	plain := helper.NewLogHandlerSpy(false)
	contextual := helper.NewLogHandlerSpy(false)
	_, service := newProductService(t,
		WithLogger(newSpyLogger(plain)),
		WithContextualLogger(newSpyLogger(contextual)),
	)

	// act
	_, err := service.GetCount(context.Background())

	// assert
	require.NoError(t, err)
	assert.True(t, plain.HasInfoLogWithMessage("tableservice operation: get_count completed").Assert())
	assert.True(t, contextual.HasInfoLogWithMessage("tableservice operation: get_count completed").Assert())
	assert.Equal(t, plain.GetRecordCount(), contextual.GetRecordCount())
}
