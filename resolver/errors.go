package resolver

import (
	"context"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/pkg/gqlexec"
)

// PresentError renders a resolver error for the response. Query errors
// carry their code and identifying fields as extensions; anything else
// is reported with its message only.
func PresentError(ctx context.Context, err error, path ast.Path) *gqlerror.Error {
	if qe, ok := errors.AsQueryError(err); ok {
		return &gqlerror.Error{
			Err:        err,
			Message:    qe.Message,
			Path:       path,
			Extensions: qe.Extensions(),
		}
	}
	return gqlexec.DefaultErrorPresenter(ctx, err, path)
}

// ErrorCode returns the code reported for a response error, or "" for
// errors without one.
func ErrorCode(err *gqlerror.Error) string {
	if err == nil || err.Extensions == nil {
		return ""
	}
	code, _ := err.Extensions["code"].(string)
	return code
}
