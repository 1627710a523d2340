package resolver

import (
	_ "embed"
)

//go:embed schema.graphql
var schemaSDL string

// SchemaSDL returns the query schema served by the gateway.
func SchemaSDL() string {
	return schemaSDL
}
