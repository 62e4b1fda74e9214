// Package helper provides test doubles and fixtures shared by the tests of this module:
// spies for the observability interfaces and an in-memory sqlite database with the product schema.
package helper
