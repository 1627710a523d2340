package graphql

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/metric"
	"github.com/c360/genomegate/pkg/gqlexec"
	"github.com/c360/genomegate/resolver"
)

// Codes reported for failures that are not query errors.
const (
	CodeTimeout            = "TIMEOUT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeDeadlineExceeded   = "DEADLINE_EXCEEDED"
	CodeCancelled          = "CANCELLED"
	CodeTransient          = "TRANSIENT_ERROR"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInternal           = "INTERNAL_ERROR"
	CodeQueryFailed        = "QUERY_ERROR"
	CodeValidationFailed   = "GRAPHQL_VALIDATION_FAILED"
	CodeRateLimited        = "RATE_LIMITED"
)

// mapInfrastructureError converts a non-query error into a GraphQL error
// with a code and a message safe to return to clients.
func mapInfrastructureError(err error, path ast.Path) *gqlerror.Error {
	out := &gqlerror.Error{Err: err, Path: path}

	switch {
	case stderrors.Is(err, nats.ErrTimeout):
		out.Message = "Query timeout - please try again"
		out.Extensions = map[string]any{"code": CodeTimeout}

	case stderrors.Is(err, nats.ErrNoResponders), stderrors.Is(err, nats.ErrConnectionClosed):
		out.Message = "Service unavailable - please retry"
		out.Extensions = map[string]any{"code": CodeServiceUnavailable}

	case stderrors.Is(err, context.DeadlineExceeded):
		out.Message = "Query timeout exceeded"
		out.Extensions = map[string]any{"code": CodeDeadlineExceeded}

	case stderrors.Is(err, context.Canceled):
		out.Message = "Query cancelled"
		out.Extensions = map[string]any{"code": CodeCancelled}

	case errors.IsInvalid(err):
		out.Message = fmt.Sprintf("Invalid input: %s", err.Error())
		out.Extensions = map[string]any{"code": CodeInvalidInput}

	case errors.IsFatal(err):
		out.Message = "Internal server error"
		out.Extensions = map[string]any{"code": CodeInternal}

	case errors.IsTransient(err):
		out.Message = "Temporary error - please retry"
		out.Extensions = map[string]any{"code": CodeTransient, "retryable": true}

	default:
		out.Message = fmt.Sprintf("Query failed: %s", err.Error())
		out.Extensions = map[string]any{"code": CodeQueryFailed}
	}
	return out
}

// ErrorPresenter renders resolver errors for responses and counts them by
// code. Query errors keep their own code and fields; everything else is
// classified.
func ErrorPresenter(metrics *metric.Metrics) gqlexec.ErrorPresenter {
	return func(ctx context.Context, err error, path ast.Path) *gqlerror.Error {
		var out *gqlerror.Error
		var gerr *gqlerror.Error
		switch {
		case isQueryError(err):
			out = resolver.PresentError(ctx, err, path)
		case stderrors.As(err, &gerr):
			out = gqlexec.DefaultErrorPresenter(ctx, err, path)
		default:
			out = mapInfrastructureError(err, path)
		}
		if metrics != nil {
			metrics.RecordQueryError(errorCode(out))
		}
		return out
	}
}

func isQueryError(err error) bool {
	_, ok := errors.AsQueryError(err)
	return ok
}

// errorCode names a response error for metrics and logs.
func errorCode(err *gqlerror.Error) string {
	if code := resolver.ErrorCode(err); code != "" {
		return code
	}
	if err != nil && err.Rule != "" {
		return CodeValidationFailed
	}
	return CodeQueryFailed
}
