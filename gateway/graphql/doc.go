// Package graphql serves the gateway's query endpoint over HTTP.
//
// One path answers POST with a JSON body of the standard shape
// ({"query", "operationName", "variables"}) and GET with the GraphQL
// Playground. The same mux exposes /health (backed by a health.Monitor)
// and /metrics (Prometheus exposition from the metric registry).
//
// # Status codes
//
// HTTP 400 is reserved for requests that never reach the executor: a body
// that is not JSON, one with no query, or one over MaxBodyBytes. Parse,
// validation and depth errors come back with 200, an errors list and no
// data key. Resolver errors sit alongside partial data. When RateLimit is
// set, requests beyond it get 429 with code RATE_LIMITED.
//
// # Errors
//
// ErrorPresenter is installed on the executor. Query errors from the
// resolver package keep their code and identifying fields. Other failures
// are classified:
//
//	nats.ErrTimeout                       TIMEOUT
//	nats.ErrNoResponders, closed conn     SERVICE_UNAVAILABLE
//	context.DeadlineExceeded              DEADLINE_EXCEEDED
//	context.Canceled                      CANCELLED
//	errors.WrapInvalid                    INVALID_INPUT
//	errors.WrapFatal                      INTERNAL_ERROR
//	errors.WrapTransient                  TRANSIENT_ERROR
//	anything else                         QUERY_ERROR
//
// Every reported error is counted by code in genomegate_resolver_errors_total.
//
// # Usage
//
//	srv, err := graphql.NewServer(graphql.FromGeneral(cfg.General), res, monitor, registry, logger)
//	if err != nil {
//	    return err
//	}
//	if err := srv.Setup(); err != nil {
//	    return err
//	}
//	return srv.Start(ctx, nil)
//
// Each response carries extensions.execution_time_in_seconds and echoes or
// assigns an X-Request-ID header.
package graphql
