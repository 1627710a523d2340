package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/google/uuid"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/health"
	"github.com/c360/genomegate/metric"
	"github.com/c360/genomegate/pkg/gqlexec"
	"github.com/c360/genomegate/tracing"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// ExecutionTimeExtension is the response extension holding the query's
// wall time in seconds, rounded to two decimals.
const ExecutionTimeExtension = "execution_time_in_seconds"

// QueryExecutor runs one query under its own request scope.
type QueryExecutor interface {
	Execute(ctx context.Context, req gqlexec.Request) *gqlexec.Response
}

// shutdownGrace bounds the drain when Start's context ends.
const shutdownGrace = 30 * time.Second

// Server serves the GraphQL endpoint, /health and /metrics.
type Server struct {
	config     Config
	executor   QueryExecutor
	monitor    *health.Monitor
	registry   *metric.MetricsRegistry
	metrics    *metric.Metrics
	limiter    *rate.Limiter
	logger     *slog.Logger
	httpServer *http.Server
	mux        *http.ServeMux

	mu      sync.RWMutex
	running bool
	addr    string
}

// NewServer creates the HTTP server. monitor and registry may be nil, in
// which case /health reports liveness only and /metrics is not served.
func NewServer(config Config, executor QueryExecutor, monitor *health.Monitor, registry *metric.MetricsRegistry, logger *slog.Logger) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Server", "NewServer", "config validation")
	}

	if executor == nil {
		return nil, errors.WrapFatal(fmt.Errorf("executor is nil"), "Server", "NewServer",
			"executor is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   config,
		executor: executor,
		monitor:  monitor,
		registry: registry,
		logger:   logger.With("component", "graphql"),
		mux:      http.NewServeMux(),
	}
	if registry != nil {
		s.metrics = registry.CoreMetrics()
	}
	if config.RateLimit > 0 {
		burst := int(math.Max(1, math.Ceil(config.RateLimit)))
		s.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	return s, nil
}

// Setup configures the HTTP server and routes
func (s *Server) Setup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.monitor != nil {
		s.mux.Handle("/health", s.monitor.Handler("genomegate"))
	} else {
		s.mux.HandleFunc("/health", s.handleHealth)
	}
	if s.registry != nil {
		s.mux.Handle("/metrics", s.registry.Handler())
	}
	s.mux.HandleFunc(s.config.Path, s.handleGraphQL)

	if s.config.EnablePlayground {
		s.logger.Info("GraphQL Playground enabled",
			"url", fmt.Sprintf("http://%s%s", s.config.BindAddress, s.config.Path))
	}

	var handler http.Handler = s.mux
	if len(s.config.CORSOrigins) > 0 {
		handler = s.corsMiddleware(handler)
	}

	s.httpServer = &http.Server{
		Addr:         s.config.BindAddress,
		Handler:      handler,
		ReadTimeout:  s.config.Timeout,
		WriteTimeout: s.config.Timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Server configured",
		"address", s.config.BindAddress,
		"path", s.config.Path,
		"timeout", s.config.Timeout,
		"rate_limit", s.config.RateLimit)

	return nil
}

// Handler returns the configured handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Handler
}

// Start binds the listener, closes ready and serves until ctx ends, Stop
// is called or serving fails. A Stop-initiated shutdown returns nil.
func (s *Server) Start(ctx context.Context, ready chan<- struct{}) error {
	s.mu.Lock()
	if s.httpServer == nil {
		s.mu.Unlock()
		return errors.WrapFatal(errors.ErrNotStarted, "Server", "Start", "server not set up")
	}
	if s.running {
		s.mu.Unlock()
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Server", "Start", "server already running")
	}
	ln, err := net.Listen("tcp", s.config.BindAddress)
	if err != nil {
		s.mu.Unlock()
		return errors.WrapFatal(err, "Server", "Start", "listen")
	}
	s.running = true
	s.addr = ln.Addr().String()
	server := s.httpServer
	s.mu.Unlock()

	s.logger.Info("Server listening", "address", s.addr)
	if ready != nil {
		close(ready)
	}

	served := make(chan error, 1)
	go func() { served <- server.Serve(ln) }()

	select {
	case <-ctx.Done():
		return s.Stop(shutdownGrace)
	case err := <-served:
		if err == http.ErrServerClosed {
			return nil
		}
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.logger.Error("HTTP server failed", "error", err)
		return errors.WrapFatal(err, "Server", "Start", "serve")
	}
}

// Stop shuts the server down, waiting up to timeout for in-flight queries.
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	server, wasRunning := s.httpServer, s.running
	s.running = false
	s.mu.Unlock()
	if !wasRunning {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		s.logger.Warn("Shutdown did not drain in time", "timeout", timeout, "error", err)
		return errors.WrapTransient(err, "Server", "Stop", "graceful shutdown")
	}
	s.logger.Info("Server stopped")
	return nil
}

// Addr returns the bound address while the server is running.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return ""
	}
	return s.addr
}

// handleGraphQL serves the playground on GET and queries on POST.
func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != s.config.Path {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		if !s.config.EnablePlayground {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		playground.Handler("genomegate", s.config.Path).ServeHTTP(w, r)
	case http.MethodPost:
		s.handleQuery(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)
	logger := s.logger.With("request_id", requestID)

	if s.metrics != nil {
		s.metrics.RequestsInFlight.Inc()
		defer s.metrics.RequestsInFlight.Dec()
	}

	if s.limiter != nil && !s.limiter.Allow() {
		s.writeErrors(w, http.StatusTooManyRequests, gqlerror.List{{
			Message:    "Too many requests - please retry later",
			Extensions: map[string]any{"code": CodeRateLimited},
		}})
		s.record("rate_limited", start)
		return
	}

	var req gqlexec.Request
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil || req.Query == "" {
		msg := "Request body must be a JSON object with a query"
		if err != nil && err != io.EOF {
			msg = fmt.Sprintf("Invalid request body: %s", err.Error())
		}
		s.writeErrors(w, http.StatusBadRequest, gqlerror.List{{Message: msg}})
		s.record("bad_request", start)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.Timeout)
	defer cancel()
	ctx, span := tracing.Start(ctx, "graphql.query",
		attribute.String("graphql.operation.name", req.OperationName),
		attribute.String("request.id", requestID))

	resp := s.executor.Execute(ctx, req)
	tracing.End(span, nil)

	elapsed := time.Since(start)
	if resp.Extensions == nil {
		resp.Extensions = map[string]any{}
	}
	resp.Extensions[ExecutionTimeExtension] = math.Round(elapsed.Seconds()*100) / 100

	status := "ok"
	if len(resp.Errors) > 0 {
		status = "error"
	}
	if !resp.Executed() && s.metrics != nil {
		for _, e := range resp.Errors {
			s.metrics.RecordQueryError(errorCode(e))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}

	s.record(status, start)
	logger.Debug("Query served",
		"operation", req.OperationName,
		"errors", len(resp.Errors),
		"executed", resp.Executed(),
		"duration", elapsed)
}

func (s *Server) writeErrors(w http.ResponseWriter, code int, errs gqlerror.List) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"errors": errs})
}

func (s *Server) record(status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordRequest(status, time.Since(start))
	}
}

// handleHealth reports liveness when no monitor is configured
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if !running {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// corsMiddleware answers preflight requests and echoes allowed origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	wildcard := slices.Contains(s.config.CORSOrigins, "*")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (wildcard || slices.Contains(s.config.CORSOrigins, origin)) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
			h.Set("Access-Control-Expose-Headers", RequestIDHeader)
			h.Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IsRunning returns whether the server is currently running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
