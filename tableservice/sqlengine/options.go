package sqlengine

import (
	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/tableservice-go/tableservice"
)

// Option defines a functional option for configuring a Service.
type Option func(*Service) error

// BaseQueryFunc decorates the base query of a service, e.g. with joins, extra columns, default
// predicates or a default order. It runs every time a query is built and must not keep state.
type BaseQueryFunc func(query *goqu.SelectDataset) *goqu.SelectDataset

// StoreDataMapper rewrites the payload of Insert and Update before it is validated and stored.
// It receives a copy and may return the same map.
type StoreDataMapper func(data tableservice.Record) (tableservice.Record, error)

// WithIDColumn overrides the identifier column, "id" by default.
func WithIDColumn(column string) Option {
	return func(s *Service) error {
		if column == "" {
			return tableservice.ErrEmptyColumnName
		}

		s.idColumn = column

		return nil
	}
}

// WithSlugColumn overrides the column slugs are stored in, "slug" by default.
func WithSlugColumn(column string) Option {
	return func(s *Service) error {
		if column == "" {
			return tableservice.ErrEmptyColumnName
		}

		s.slugColumn = column

		return nil
	}
}

// WithNameColumn overrides the column fallback slugs are derived from, "name" by default.
func WithNameColumn(column string) Option {
	return func(s *Service) error {
		if column == "" {
			return tableservice.ErrEmptyColumnName
		}

		s.nameColumn = column

		return nil
	}
}

// WithBaseQuery installs a decorator for the base query all reads are built from.
func WithBaseQuery(fn BaseQueryFunc) Option {
	return func(s *Service) error {
		s.baseQuery = fn
		return nil
	}
}

// WithStoreDataMapper installs a payload mapper for Insert and Update.
func WithStoreDataMapper(mapper StoreDataMapper) Option {
	return func(s *Service) error {
		s.storeDataMapper = mapper
		return nil
	}
}

// WithBuffer replaces the default unsynchronized result buffer.
func WithBuffer(buffer tableservice.Buffer) Option {
	return func(s *Service) error {
		if buffer != nil {
			s.buffer = buffer
		}

		return nil
	}
}

// WithSlugCache replaces the default unsynchronized slug cache, e.g. with one shared between instances.
func WithSlugCache(cache tableservice.SlugCache) Option {
	return func(s *Service) error {
		if cache != nil {
			s.slugCache = cache
		}

		return nil
	}
}

// WithLogger sets the logger for the Service.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with bound arguments and execution timing (development use)
// Info level: completed operations with durations and row counts (production-safe)
// Warn level: rejected input, failing callbacks and slug cache problems
// Error level: database failures.
func WithLogger(logger tableservice.Logger) Option {
	return func(s *Service) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger, used instead of the plain one for trace correlation.
func WithContextualLogger(logger tableservice.ContextualLogger) Option {
	return func(s *Service) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Service.
func WithMetrics(collector tableservice.MetricsCollector) Option {
	return func(s *Service) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Service, one span is opened per public operation.
func WithTracing(collector tableservice.TracingCollector) Option {
	return func(s *Service) error {
		s.tracingCollector = collector
		return nil
	}
}
