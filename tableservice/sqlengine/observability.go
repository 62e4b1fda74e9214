package sqlengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
)

const (
	metricOperationDuration = "tableservice_operation_duration_seconds"
	metricRowsReturned      = "tableservice_rows_returned_total"
	metricErrors            = "tableservice_errors_total"
	metricBufferHits        = "tableservice_buffer_hits_total"
	metricBufferMisses      = "tableservice_buffer_misses_total"
	metricSlugCacheHits     = "tableservice_slug_cache_hits_total"
	metricSlugCacheMisses   = "tableservice_slug_cache_misses_total"

	spanNamePrefix     = "tableservice."
	spanAttrOperation  = "operation"
	spanAttrTable      = "table"
	spanAttrErrorType  = "error_type"
	spanAttrRowCount   = "row_count"
	spanAttrRecordID   = "record_id"
	spanAttrDurationMS = "duration_ms"
	labelStatus        = "status"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeValidation = "validation"
	errorTypeBuildQuery = "build_query"
	errorTypeQuery      = "database_query"
	errorTypeExec       = "database_exec"
	errorTypeRowScan    = "row_scan"
	errorTypeInsertID   = "insert_id"
	errorTypeTx         = "transaction"
	errorTypeCallback   = "callback"
)

// errorTypeOf classifies an operation error for metrics and span attributes.
func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, tableservice.ErrValidation):
		return errorTypeValidation
	case errors.Is(err, tableservice.ErrBuildingQueryFailed):
		return errorTypeBuildQuery
	case errors.Is(err, tableservice.ErrQueryingFailed):
		return errorTypeQuery
	case errors.Is(err, tableservice.ErrExecutingFailed):
		return errorTypeExec
	case errors.Is(err, tableservice.ErrScanningRowFailed):
		return errorTypeRowScan
	case errors.Is(err, tableservice.ErrGettingInsertIDFailed):
		return errorTypeInsertID
	case errors.Is(err, tableservice.ErrTransactionFailed),
		errors.Is(err, tableservice.ErrNoActiveTransaction),
		errors.Is(err, tableservice.ErrTransactionAlreadyActive):
		return errorTypeTx
	default:
		return errorTypeCallback
	}
}

// === Operation Observer Pattern ===
// One observer per public operation: it owns the span, the duration metric and the completion log.

type operationObserver struct {
	s         *Service
	ctx       context.Context
	operation string
	span      tableservice.SpanContext
	start     time.Time
}

// observe starts observing a public operation and returns the context carrying its span.
func (s *Service) observe(ctx context.Context, operation string) (*operationObserver, context.Context) {
	spanCtx, span := s.startTraceSpan(ctx, operation)

	return &operationObserver{
		s:         s,
		ctx:       spanCtx,
		operation: operation,
		span:      span,
		start:     time.Now(),
	}, spanCtx
}

// finish records the outcome. attrs are attached to the span and the completion log on success.
func (o *operationObserver) finish(err error, attrs map[string]string) {
	duration := time.Since(o.start)

	if err != nil {
		errorType := errorTypeOf(err)
		o.s.recordDurationMetrics(o.ctx, duration, o.operation, statusError)
		o.s.recordErrorMetrics(o.ctx, o.operation, errorType)
		o.s.finishSpanError(o.span, errorType, duration)

		switch errorType {
		case errorTypeValidation, errorTypeCallback:
			o.s.logWarn(o.ctx, logMsgOperationRejected+o.operation, err, spanAttrErrorType, errorType)
		}

		return
	}

	o.s.recordDurationMetrics(o.ctx, duration, o.operation, statusSuccess)
	o.s.finishSpanSuccess(o.span, duration, attrs)

	args := []any{logAttrTable, o.s.tableName, logAttrDurationMS, toMilliseconds(duration)}
	for key, value := range attrs {
		args = append(args, key, value)
	}

	o.s.logOperation(o.ctx, o.operation+logMsgCompleted, args...)
}

// finishWithRows records the outcome of a read that returned rowCount rows.
func (o *operationObserver) finishWithRows(err error, rowCount int) {
	if err == nil {
		o.s.recordValueMetrics(o.ctx, metricRowsReturned, float64(rowCount), o.operation)
	}

	o.finish(err, map[string]string{spanAttrRowCount: fmt.Sprintf("%d", rowCount)})
}

/***** tracing *****/

func (s *Service) startTraceSpan(ctx context.Context, operation string) (context.Context, tableservice.SpanContext) {
	if s.tracingCollector == nil {
		return ctx, nil
	}

	return s.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, map[string]string{
		spanAttrOperation: operation,
		spanAttrTable:     s.tableName,
	})
}

func (s *Service) finishSpanSuccess(span tableservice.SpanContext, duration time.Duration, attrs map[string]string) {
	if s.tracingCollector == nil || span == nil {
		return
	}

	span.SetStatus(statusSuccess)
	span.AddAttribute(spanAttrDurationMS, formatMilliseconds(duration))
	for key, value := range attrs {
		span.AddAttribute(key, value)
	}

	s.tracingCollector.FinishSpan(span, statusSuccess, attrs)
}

func (s *Service) finishSpanError(span tableservice.SpanContext, errorType string, duration time.Duration) {
	if s.tracingCollector == nil || span == nil {
		return
	}

	span.SetStatus(statusError)
	span.AddAttribute(spanAttrErrorType, errorType)
	span.AddAttribute(spanAttrDurationMS, formatMilliseconds(duration))

	s.tracingCollector.FinishSpan(span, statusError, map[string]string{spanAttrErrorType: errorType})
}

/***** metrics *****/

func (s *Service) labels(operation string, extra ...string) map[string]string {
	labels := map[string]string{
		spanAttrOperation: operation,
		spanAttrTable:     s.tableName,
	}

	for i := 0; i+1 < len(extra); i += 2 {
		labels[extra[i]] = extra[i+1]
	}

	return labels
}

func (s *Service) recordDurationMetrics(ctx context.Context, duration time.Duration, operation, status string) {
	if s.metricsCollector == nil {
		return
	}

	labels := s.labels(operation, labelStatus, status)

	if contextualCollector, ok := s.metricsCollector.(tableservice.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricOperationDuration, duration, labels)
		return
	}

	s.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
}

func (s *Service) recordValueMetrics(ctx context.Context, metric string, value float64, operation string) {
	if s.metricsCollector == nil {
		return
	}

	labels := s.labels(operation, labelStatus, statusSuccess)

	if contextualCollector, ok := s.metricsCollector.(tableservice.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	s.metricsCollector.RecordValue(metric, value, labels)
}

func (s *Service) recordErrorMetrics(ctx context.Context, operation, errorType string) {
	s.incrementCounter(ctx, metricErrors, s.labels(operation, labelStatus, statusError, spanAttrErrorType, errorType))
}

func (s *Service) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := s.metricsCollector.(tableservice.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	s.metricsCollector.IncrementCounter(metric, labels)
}

/***** logging *****/

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (s *Service) logQueryWithDuration(
	ctx context.Context,
	sqlQuery string,
	args []any,
	action string,
	duration time.Duration,
) {

	attrs := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery, logAttrArgs, args}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, attrs...)
	}

	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, attrs...)
	}
}

// logOperation logs operational information at info level.
func (s *Service) logOperation(ctx context.Context, action string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}

	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}
}

func (s *Service) logWarn(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, message, allArgs...)
	}

	if s.logger != nil {
		s.logger.Warn(message, allArgs...)
	}
}

func (s *Service) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}

	if s.logger != nil {
		s.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func formatMilliseconds(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d.Nanoseconds())/1e6)
}
