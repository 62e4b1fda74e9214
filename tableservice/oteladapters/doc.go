// Package oteladapters provides OpenTelemetry implementations of the tableservice observability interfaces.
//
// Wire them into a service with the sqlengine options:
//
//	service, err := sqlengine.NewService(conn, "products",
//		sqlengine.WithMetrics(oteladapters.NewMetricsCollector(meterProvider.Meter("tableservice"))),
//		sqlengine.WithTracing(oteladapters.NewTracingCollector(tracerProvider.Tracer("tableservice"))),
//		sqlengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("tableservice")),
//	)
package oteladapters
