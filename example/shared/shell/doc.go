// Package shell provides infrastructure helpers of the examples around the table service,
// most notably retrying storage operations that failed for transient reasons.
//
// In Domain-Driven Design or Hexagonal Architecture terminology, this would be
// called the 'infrastructure' layer.
package shell
