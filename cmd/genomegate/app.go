package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/c360/genomegate/config"
	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/docstore/memstore"
	"github.com/c360/genomegate/gateway/graphql"
	"github.com/c360/genomegate/health"
	"github.com/c360/genomegate/loader"
	"github.com/c360/genomegate/metadata"
	"github.com/c360/genomegate/metric"
	"github.com/c360/genomegate/pkg/gqlexec"
	"github.com/c360/genomegate/resolver"
	"github.com/c360/genomegate/resultcache"
	"github.com/c360/genomegate/tracing"
	"github.com/c360/genomegate/xref"
)

// app is the wired gateway: one HTTP server over shared backends.
type app struct {
	server   *graphql.Server
	resolver *resolver.Resolver
	monitor  *health.Monitor
	registry *metric.MetricsRegistry
	backends []health.Backend
	logger   *slog.Logger

	// closers run in reverse order on shutdown
	closers []func(context.Context) error
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// close releases every backend, newest first, and returns the first error.
func (a *app) close(ctx context.Context) error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("Shutdown step failed", "error", err)
			if first == nil {
				first = err
			}
		}
	}
	a.closers = nil
	return first
}

// buildApp connects the backends described by cfg and assembles the
// server. On failure everything opened so far is closed.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{
		registry: metric.NewMetricsRegistry(),
		monitor:  health.NewMonitor(),
		logger:   logger,
	}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()
	metrics := a.registry.CoreMetrics()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Endpoint:    cfg.General.OTLPEndpoint,
		ServiceName: cfg.General.ServiceName,
		Version:     Version,
		Insecure:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	a.onClose(shutdownTracing)

	transport, err := openMetadataTransport(ctx, cfg.GRPC, logger)
	if err != nil {
		return nil, fmt.Errorf("metadata transport: %w", err)
	}
	meta := metadata.NewClient(transport, metadata.ClientConfig{
		Timeout: cfg.GRPC.Timeout,
		Metrics: metrics,
		Logger:  logger,
	})
	a.onClose(func(context.Context) error { return meta.Close() })

	backend, err := openDocumentBackend(ctx, cfg.Mongo, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("document store: %w", err)
	}
	store, err := docstore.NewStore(ctx, backend, meta, docstore.StoreConfig{
		DefaultDB:        cfg.Mongo.DB,
		LookupCollection: cfg.Mongo.LookupCollection,
		MaxDatabases:     cfg.Mongo.MaxDatabases,
		ReleaseTTL:       cfg.Cache.Expiry,
	}, logger)
	if err != nil {
		_ = backend.Close(ctx)
		return nil, fmt.Errorf("document store: %w", err)
	}
	a.onClose(store.Close)

	xrefs, err := loadXrefResolver(ctx, cfg.General, logger)
	if err != nil {
		return nil, fmt.Errorf("xref resolver: %w", err)
	}

	results, err := resultcache.New(ctx, resultcache.Config{
		Enabled:  cfg.Cache.Enabled,
		Backend:  cfg.Cache.Backend,
		Addr:     cfg.Cache.Addr(),
		Password: cfg.Cache.Password,
		TTL:      cfg.Cache.Expiry,
		MaxSize:  cfg.Cache.MaxSize,
		Registry: a.registry,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}
	a.onClose(func(context.Context) error { return results.Close() })

	a.resolver, err = resolver.New(resolver.Config{
		Store:    store,
		Metadata: meta,
		Xref:     xrefs,
		Cache:    results,
		Loader: loader.Config{
			Wait:     cfg.Loader.Wait,
			MaxBatch: cfg.Loader.MaxBatch,
			Metrics:  metrics,
		},
		VersionFile: cfg.General.VersionFile,
		MaxDepth:    cfg.General.MaxQueryDepth,
		Metrics:     metrics,
		Logger:      logger,
	}, gqlexec.WithErrorPresenter(graphql.ErrorPresenter(metrics)))
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}

	a.backends = []health.Backend{
		{Name: "docstore", Critical: true, Check: store.Ping},
		{Name: "metadata", Check: meta.Ping},
	}
	if cfg.Cache.Enabled {
		a.backends = append(a.backends, health.Backend{Name: "resultcache", Check: results.Ping})
	}

	a.server, err = graphql.NewServer(graphql.FromGeneral(cfg.General), a.resolver, a.monitor, a.registry, logger)
	if err != nil {
		return nil, fmt.Errorf("graphql server: %w", err)
	}
	if err := a.server.Setup(); err != nil {
		return nil, fmt.Errorf("graphql server: %w", err)
	}
	return a, nil
}

func openMetadataTransport(ctx context.Context, cfg config.GRPCConfig, logger *slog.Logger) (metadata.Transport, error) {
	switch cfg.Transport {
	case config.TransportNATS:
		logger.Info("Connecting to metadata service over NATS", "url", cfg.NATSURL, "subject_prefix", cfg.SubjectPrefix)
		return metadata.ConnectNATS(ctx, metadata.NATSConfig{
			URL:           cfg.NATSURL,
			SubjectPrefix: cfg.SubjectPrefix,
			Name:          appName,
			Timeout:       cfg.Timeout,
			Logger:        logger,
		})
	default:
		logger.Info("Using metadata service over gRPC", "target", cfg.Target())
		return metadata.DialGRPC(cfg.Target(), logger)
	}
}

func openDocumentBackend(ctx context.Context, cfg config.MongoConfig, metrics *metric.Metrics, logger *slog.Logger) (docstore.Backend, error) {
	if cfg.Backend == config.BackendMemory {
		mem := memstore.New()
		if cfg.Fixtures != "" {
			if err := mem.LoadFile(cfg.DB, cfg.Fixtures); err != nil {
				return nil, err
			}
		}
		logger.Info("Serving documents from memory", "db", cfg.DB, "fixtures", cfg.Fixtures)
		return mem, nil
	}

	logger.Info("Connecting to MongoDB", "hosts", cfg.Hosts(), "db", cfg.DB)
	return docstore.ConnectMongo(ctx, docstore.MongoConfig{
		URI:     cfg.URI(),
		Timeout: cfg.Timeout,
		Metrics: metrics,
		Logger:  logger,
	})
}

func loadXrefResolver(ctx context.Context, cfg config.GeneralConfig, logger *slog.Logger) (*xref.Resolver, error) {
	var (
		registry *xref.Registry
		err      error
	)
	if cfg.RegistryFile != "" {
		registry, err = xref.LoadRegistryFile(cfg.RegistryFile)
	} else {
		registry, err = xref.FetchRegistry(ctx, &http.Client{Timeout: 30 * time.Second}, cfg.RegistryURL)
	}
	if err != nil {
		return nil, err
	}

	var mapping *xref.Mapping
	if cfg.XrefMappingFile != "" {
		mapping, err = xref.LoadMappingFile(cfg.XrefMappingFile)
	} else {
		mapping, err = xref.DefaultMapping()
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded cross-reference registry", "namespaces", registry.Len())
	return xref.NewResolver(registry, mapping), nil
}
