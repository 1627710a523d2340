package gqlexec

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	graphql "github.com/graph-gophers/graphql-go"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
)

// DefaultMaxParallelism bounds the resolvers one query runs at once. It is
// well above graphql-go's own default so that list items waiting on the
// same loader batch do not queue behind each other.
const DefaultMaxParallelism = 100

// ErrorPresenter turns a resolver error into a response error. Returning
// nil drops the error from the response.
type ErrorPresenter func(ctx context.Context, err error, path ast.Path) *gqlerror.Error

// FieldObserver is told about every resolver call that takes a context,
// arguments or can fail. Plain field reads are not observed.
type FieldObserver func(typeName, field string, duration time.Duration, err error)

// Executor validates queries with gqlparser and runs them on a
// graphql-go schema. It is safe for concurrent use.
type Executor struct {
	schema      *ast.Schema
	exec        *graphql.Schema
	present     ErrorPresenter
	observe     FieldObserver
	maxDepth    int
	parallelism int
	logger      *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithErrorPresenter replaces the default error presentation.
func WithErrorPresenter(fn ErrorPresenter) Option {
	return func(e *Executor) { e.present = fn }
}

// WithFieldObserver installs a hook called after every non-trivial
// resolver.
func WithFieldObserver(fn FieldObserver) Option {
	return func(e *Executor) { e.observe = fn }
}

// WithMaxDepth rejects operations nested deeper than depth. Zero disables
// the check.
func WithMaxDepth(depth int) Option {
	return func(e *Executor) { e.maxDepth = depth }
}

// WithMaxParallelism bounds concurrent resolvers per query.
func WithMaxParallelism(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithLogger sets the logger resolver panics are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// LoadSchema parses SDL sources into a schema.
func LoadSchema(sources ...*ast.Source) (*ast.Schema, error) {
	return gqlparser.LoadSchema(sources...)
}

// New parses sdl and binds root to its query type. It fails when a schema
// field has no matching method or struct field on the resolver side.
func New(sdl string, root any, opts ...Option) (*Executor, error) {
	e := &Executor{
		present:     DefaultErrorPresenter,
		parallelism: DefaultMaxParallelism,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	schema, err := LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	e.schema = schema

	handler := panicHandler{logger: e.logger}
	e.exec, err = graphql.ParseSchema(sdl, root,
		graphql.UseFieldResolvers(),
		graphql.MaxParallelism(e.parallelism),
		graphql.Tracer(fieldTracer{observe: e.observe}),
		graphql.Logger(handler),
		graphql.PanicHandler(handler),
	)
	if err != nil {
		return nil, fmt.Errorf("bind resolvers: %w", err)
	}
	return e, nil
}

// Schema returns the executor's schema.
func (e *Executor) Schema() *ast.Schema { return e.schema }

// DefaultErrorPresenter reports the error message at path. Errors that
// already are gqlerror values keep their extensions.
func DefaultErrorPresenter(_ context.Context, err error, path ast.Path) *gqlerror.Error {
	var gerr *gqlerror.Error
	if stderrors.As(err, &gerr) {
		out := *gerr
		if out.Path == nil {
			out.Path = path
		}
		return &out
	}
	return &gqlerror.Error{Err: err, Message: err.Error(), Path: path}
}

// Execute validates and runs req. Parse and validation failures are
// reported in Errors with no data.
func (e *Executor) Execute(ctx context.Context, req Request) *Response {
	if errs := e.validate(req); len(errs) > 0 {
		return &Response{Errors: errs}
	}

	res := e.exec.Exec(ctx, req.Query, req.OperationName, req.Variables)
	out := &Response{
		Data:     res.Data,
		executed: len(res.Data) > 0 || ctx.Err() != nil,
	}
	for _, qe := range res.Errors {
		if gerr := e.convert(ctx, qe); gerr != nil {
			out.Errors = append(out.Errors, gerr)
		}
	}
	sort.SliceStable(out.Errors, func(i, j int) bool {
		return out.Errors[i].Path.String() < out.Errors[j].Path.String()
	})
	return out
}

// validate runs the checks that must pass before any resolver is called.
func (e *Executor) validate(req Request) gqlerror.List {
	doc, errs := gqlparser.LoadQuery(e.schema, req.Query)
	if len(errs) > 0 {
		return errs
	}

	op := doc.Operations.ForName(req.OperationName)
	if op == nil {
		return gqlerror.List{gqlerror.Errorf("operation %q not found", req.OperationName)}
	}
	if op.Operation != ast.Query {
		return gqlerror.List{gqlerror.Errorf("only queries are supported")}
	}

	if _, err := validator.VariableValues(e.schema, op, req.Variables); err != nil {
		var gerr *gqlerror.Error
		if stderrors.As(err, &gerr) {
			return gqlerror.List{gerr}
		}
		return gqlerror.List{gqlerror.Wrap(err)}
	}

	if e.maxDepth > 0 {
		if depth := selectionDepth(op.SelectionSet, map[string]bool{}); depth > e.maxDepth {
			return gqlerror.List{
				gqlerror.Errorf("query has depth %d, which exceeds the maximum of %d", depth, e.maxDepth),
			}
		}
	}
	return nil
}

// convert renders one execution error. Resolver failures and the
// request's own cancellation go through the presenter; errors raised by
// the executor itself are reported as they are.
func (e *Executor) convert(ctx context.Context, qe *gqlerrors.QueryError) *gqlerror.Error {
	path := toPath(qe.Path)

	cause := qe.ResolverError
	if cause == nil && (stderrors.Is(qe.Err, context.Canceled) || stderrors.Is(qe.Err, context.DeadlineExceeded)) {
		cause = qe.Err
	}
	if cause != nil {
		return e.present(ctx, cause, path)
	}

	out := &gqlerror.Error{
		Err:        qe.Err,
		Message:    qe.Message,
		Path:       path,
		Rule:       qe.Rule,
		Extensions: qe.Extensions,
	}
	for _, loc := range qe.Locations {
		out.Locations = append(out.Locations, gqlerror.Location{Line: loc.Line, Column: loc.Column})
	}
	return out
}
