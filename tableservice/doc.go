// Package tableservice provides the engine independent contracts of a table-oriented data access layer.
//
// A table service (see package sqlengine) gives any record type CRUD operations, filter driven search,
// lifecycle callbacks, slug resolution and savepoint aware transactions. This package holds everything
// such a service and its callers share:
//   - Filter, Definition, Constraint and SimpleFilter: AND-combined column constraints
//   - Record: one row as column name to scalar value
//   - Paging: page-size/offset windows
//   - EventListener and the hook function types: lifecycle callbacks
//   - SlugSource, Webalize, FallbackSlug: slug resolution helpers
//   - Buffer and SlugCache: the service caches, with plain map defaults
//   - ToStorageName: application case field names to storage column names
//   - the error taxonomy and the dependency-free observability interfaces
//
// Common usage pattern:
//
//	filter := tableservice.NewSimpleFilter().
//		Set("brandId", 7).
//		SetMemberOf("state", "active", "draft")
//
//	rows, err := service.SimpleSearch(ctx, filter, tableservice.NewPaging(1, 20))
//	if err != nil {
//		// handle error
//	}
package tableservice
