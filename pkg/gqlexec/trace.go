package gqlexec

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/graph-gophers/graphql-go/introspection"
	"github.com/graph-gophers/graphql-go/trace/tracer"
	"go.opentelemetry.io/otel/attribute"

	"github.com/c360/genomegate/tracing"
)

var _ tracer.Tracer = fieldTracer{}

// fieldTracer opens a span for every non-trivial resolver and reports its
// duration to the observer.
type fieldTracer struct {
	observe FieldObserver
}

func (fieldTracer) TraceQuery(ctx context.Context, _ string, _ string, _ map[string]interface{}, _ map[string]*introspection.Type) (context.Context, tracer.QueryFinishFunc) {
	return ctx, func([]*gqlerrors.QueryError) {}
}

func (t fieldTracer) TraceField(ctx context.Context, label, typeName, fieldName string, trivial bool, _ map[string]interface{}) (context.Context, tracer.FieldFinishFunc) {
	if trivial || strings.HasPrefix(typeName, "__") || strings.HasPrefix(fieldName, "__") {
		return ctx, func(*gqlerrors.QueryError) {}
	}

	start := time.Now()
	ctx, span := tracing.Start(ctx, label,
		attribute.String("graphql.type", typeName),
		attribute.String("graphql.field", fieldName))

	return ctx, func(qe *gqlerrors.QueryError) {
		var err error
		if qe != nil {
			err = qe
			if qe.ResolverError != nil {
				err = qe.ResolverError
			}
		}
		tracing.End(span, err)
		if t.observe != nil {
			t.observe(typeName, fieldName, time.Since(start), err)
		}
	}
}

// panicHandler turns a resolver panic into an error on its field and logs
// the stack.
type panicHandler struct {
	logger *slog.Logger
}

func (h panicHandler) MakePanicError(_ context.Context, value interface{}) *gqlerrors.QueryError {
	return gqlerrors.Errorf("internal error: %v", value)
}

func (h panicHandler) LogPanic(ctx context.Context, value interface{}) {
	h.logger.ErrorContext(ctx, "Resolver panicked", "panic", value, "stack", string(debug.Stack()))
}
