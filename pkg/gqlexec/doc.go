// Package gqlexec runs GraphQL queries against a typed resolver value.
//
// Documents are parsed and validated with gqlparser first, so validation
// failures keep gqlparser's messages and rules and never reach execution.
// Accepted queries are executed by graph-gophers/graphql-go: each schema
// type is served by a Go type whose methods or fields match the schema's
// field names, and sibling fields with a context, arguments or an error
// result resolve concurrently.
//
// A resolver error nulls its field and is reported in the response's
// errors array with the field's path, rendered by the ErrorPresenter. A
// null in a non-null position propagates to the nearest nullable parent.
//
//	exec, err := gqlexec.New(sdl, &queryRoot{},
//	    gqlexec.WithMaxDepth(10),
//	    gqlexec.WithErrorPresenter(present),
//	)
//	resp := exec.Execute(ctx, gqlexec.Request{Query: q})
//
// Introspection (__schema, __type, __typename) is built in.
package gqlexec
