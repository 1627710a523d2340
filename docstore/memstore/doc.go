// Package memstore is an in-memory document store implementing the
// docstore Backend interfaces. It serves fixture data in development and
// backs resolver tests.
//
// The matcher understands the subset of the Mongo query language the
// resolvers issue. It is not a general query engine.
package memstore
