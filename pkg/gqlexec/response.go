package gqlexec

import (
	"encoding/json"

	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Request is one GraphQL operation to execute.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is the result of one Execute call.
type Response struct {
	// Data is the serialised data object, in selection order.
	Data       json.RawMessage
	Errors     gqlerror.List
	Extensions map[string]any

	// executed is false when the request failed before execution began,
	// in which case data is left out of the response entirely.
	executed bool
}

// Executed reports whether execution started.
func (r *Response) Executed() bool { return r.executed }

// MarshalJSON implements the GraphQL response format.
func (r *Response) MarshalJSON() ([]byte, error) {
	out := struct {
		Data       json.RawMessage `json:"data,omitempty"`
		Errors     gqlerror.List   `json:"errors,omitempty"`
		Extensions map[string]any  `json:"extensions,omitempty"`
	}{Errors: r.Errors, Extensions: r.Extensions}

	if r.executed {
		out.Data = r.Data
		if len(out.Data) == 0 {
			out.Data = json.RawMessage("null")
		}
	}
	return json.Marshal(out)
}
