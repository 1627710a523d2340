// Package health tracks the status of the gateway's backends and serves
// it at /health.
//
// Each dependency is a Backend. The document store is critical: when it fails
// the gateway reports unhealthy and /health answers 503. The result cache
// and metadata service are optional, so their failures only degrade it.
//
//	monitor := health.NewMonitor()
//	go monitor.Run(ctx, 15*time.Second,
//	    health.Backend{Name: "docstore", Critical: true, Check: store.Ping},
//	    health.Backend{Name: "resultcache", Check: results.Ping},
//	)
//	mux.Handle("/health", monitor.Handler("genomegate"))
//
// Check errors are sanitized before they are stored: URLs, paths, IP
// addresses, ports and credentials are replaced by placeholders.
//
// Aggregation is worst-case. Any unhealthy backend makes the system
// unhealthy; otherwise any degraded backend makes it degraded.
package health
