package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/c360/genomegate/errors"
)

// Backend names accepted in the [MONGO DB], [GRPC] and [CACHE] sections.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
	BackendRedis  = "redis"

	TransportGRPC = "grpc"
	TransportNATS = "nats"
)

// DefaultRegistryURL is the identifiers.org resolver dataset.
const DefaultRegistryURL = "https://registry.api.identifiers.org/resolutionApi/getResolverDataset"

// Config is the full gateway configuration, one field per INI section.
type Config struct {
	General GeneralConfig `ini:"GENERAL" json:"general"`
	Mongo   MongoConfig   `ini:"MONGO DB" json:"mongo"`
	GRPC    GRPCConfig    `ini:"GRPC" json:"grpc"`
	Cache   CacheConfig   `ini:"CACHE" json:"cache"`
	Loader  LoaderConfig  `ini:"LOADER" json:"loader"`
}

// GeneralConfig holds the [GENERAL] section.
type GeneralConfig struct {
	BindAddress     string        `ini:"bind_address" json:"bind_address"`
	Path            string        `ini:"path" json:"path"`
	Timeout         time.Duration `ini:"timeout" json:"timeout"`
	MaxQueryDepth   int           `ini:"max_query_depth" json:"max_query_depth"`
	CORSOrigins     string        `ini:"cors_origins" json:"cors_origins"`
	RateLimit       float64       `ini:"rate_limit" json:"rate_limit"`
	XrefMappingFile string        `ini:"xref_mapping_file" json:"xref_mapping_file"`
	RegistryFile    string        `ini:"registry_file" json:"registry_file"`
	RegistryURL     string        `ini:"registry_url" json:"registry_url"`
	VersionFile     string        `ini:"version_file" json:"version_file"`
	OTLPEndpoint    string        `ini:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName     string        `ini:"service_name" json:"service_name"`
}

// MongoConfig holds the [MONGO DB] section.
type MongoConfig struct {
	Backend          string        `ini:"backend" json:"backend"`
	Host             string        `ini:"host" json:"host"`
	Port             int           `ini:"port" json:"port"`
	User             string        `ini:"user" json:"user"`
	Password         string        `ini:"password" json:"-"`
	DB               string        `ini:"db" json:"db"`
	LookupCollection string        `ini:"lookup_collection" json:"lookup_collection"`
	Timeout          time.Duration `ini:"timeout" json:"timeout"`
	MaxDatabases     int           `ini:"max_databases" json:"max_databases"`
	Fixtures         string        `ini:"fixtures" json:"fixtures"`
}

// Hosts splits the comma-separated host list.
func (m MongoConfig) Hosts() []string {
	var hosts []string
	for _, h := range strings.Split(m.Host, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// URI builds the mongodb:// connection string. Every host shares the
// configured port unless it carries its own.
func (m MongoConfig) URI() string {
	hosts := m.Hosts()
	for i, h := range hosts {
		if !strings.Contains(h, ":") {
			hosts[i] = fmt.Sprintf("%s:%d", h, m.Port)
		}
	}
	auth := ""
	if m.User != "" {
		auth = m.User + ":" + m.Password + "@"
	}
	return "mongodb://" + auth + strings.Join(hosts, ",")
}

// GRPCConfig holds the [GRPC] section describing the metadata service.
type GRPCConfig struct {
	Transport     string        `ini:"transport" json:"transport"`
	Host          string        `ini:"host" json:"host"`
	Port          int           `ini:"port" json:"port"`
	Timeout       time.Duration `ini:"timeout" json:"timeout"`
	NATSURL       string        `ini:"nats_url" json:"nats_url"`
	SubjectPrefix string        `ini:"subject_prefix" json:"subject_prefix"`
}

// Target returns the host:port dial target.
func (g GRPCConfig) Target() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// CacheConfig holds the [CACHE] section for the result cache.
type CacheConfig struct {
	Enabled  bool          `ini:"enabled" json:"enabled"`
	Backend  string        `ini:"backend" json:"backend"`
	Host     string        `ini:"host" json:"host"`
	Port     int           `ini:"port" json:"port"`
	Password string        `ini:"password" json:"-"`
	Expiry   time.Duration `ini:"expiry" json:"expiry"`
	MaxSize  int           `ini:"max_size" json:"max_size"`
}

// Addr returns the redis host:port address.
func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoaderConfig holds the [LOADER] section.
type LoaderConfig struct {
	Wait     time.Duration `ini:"wait" json:"wait"`
	MaxBatch int           `ini:"max_batch" json:"max_batch"`
}

// DefaultConfig returns a configuration usable against local services.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	g := &c.General
	if g.BindAddress == "" {
		g.BindAddress = ":8000"
	}
	if g.Path == "" {
		g.Path = "/"
	}
	if g.Timeout == 0 {
		g.Timeout = 30 * time.Second
	}
	if g.MaxQueryDepth == 0 {
		g.MaxQueryDepth = 10
	}
	if g.CORSOrigins == "" {
		g.CORSOrigins = "*"
	}
	if g.RegistryURL == "" {
		g.RegistryURL = DefaultRegistryURL
	}
	if g.VersionFile == "" {
		g.VersionFile = "version_config.ini"
	}
	if g.ServiceName == "" {
		g.ServiceName = "genomegate"
	}

	m := &c.Mongo
	if m.Backend == "" {
		m.Backend = BackendMongo
	}
	if m.Host == "" {
		m.Host = "localhost"
	}
	if m.Port == 0 {
		m.Port = 27017
	}
	if m.DB == "" {
		m.DB = "release_default"
	}
	if m.Timeout == 0 {
		m.Timeout = 10 * time.Second
	}
	if m.MaxDatabases == 0 {
		m.MaxDatabases = 32
	}

	r := &c.GRPC
	if r.Transport == "" {
		r.Transport = TransportGRPC
	}
	if r.Host == "" {
		r.Host = "localhost"
	}
	if r.Port == 0 {
		r.Port = 50051
	}
	if r.Timeout == 0 {
		r.Timeout = 5 * time.Second
	}
	if r.NATSURL == "" {
		r.NATSURL = "nats://localhost:4222"
	}
	if r.SubjectPrefix == "" {
		r.SubjectPrefix = "ensembl_metadata"
	}

	ch := &c.Cache
	if ch.Backend == "" {
		ch.Backend = BackendMemory
	}
	if ch.Host == "" {
		ch.Host = "localhost"
	}
	if ch.Port == 0 {
		ch.Port = 6379
	}
	if ch.Expiry == 0 {
		ch.Expiry = 6600 * time.Second
	}
	if ch.MaxSize == 0 {
		ch.MaxSize = 10000
	}

	if c.Loader.Wait == 0 {
		c.Loader.Wait = 2 * time.Millisecond
	}
	if c.Loader.MaxBatch == 0 {
		c.Loader.MaxBatch = 1000
	}
}

// Validate fills defaults for unset keys and rejects inconsistent values.
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.General.MaxQueryDepth < 1 || c.General.MaxQueryDepth > 50 {
		return invalid("max_query_depth must be between 1 and 50, got %d", c.General.MaxQueryDepth)
	}
	if c.General.RateLimit < 0 {
		return invalid("rate_limit cannot be negative")
	}
	if !strings.HasPrefix(c.General.Path, "/") {
		return invalid("path must start with /: %q", c.General.Path)
	}

	switch c.Mongo.Backend {
	case BackendMongo:
		if len(c.Mongo.Hosts()) == 0 {
			return invalid("[MONGO DB] host is required")
		}
	case BackendMemory:
	default:
		return invalid("unknown [MONGO DB] backend %q", c.Mongo.Backend)
	}
	if c.Mongo.Port < 1 || c.Mongo.Port > 65535 {
		return invalid("invalid [MONGO DB] port %d", c.Mongo.Port)
	}
	if c.Mongo.MaxDatabases < 1 {
		return invalid("max_databases must be positive")
	}

	switch c.GRPC.Transport {
	case TransportGRPC, TransportNATS:
	default:
		return invalid("unknown [GRPC] transport %q", c.GRPC.Transport)
	}
	if c.GRPC.Port < 1 || c.GRPC.Port > 65535 {
		return invalid("invalid [GRPC] port %d", c.GRPC.Port)
	}

	switch c.Cache.Backend {
	case BackendMemory, BackendRedis:
	default:
		return invalid("unknown [CACHE] backend %q", c.Cache.Backend)
	}
	if c.Cache.Expiry < 0 {
		return invalid("[CACHE] expiry cannot be negative")
	}

	if c.Loader.MaxBatch < 1 {
		return invalid("[LOADER] max_batch must be positive")
	}
	if c.Loader.Wait < 0 {
		return invalid("[LOADER] wait cannot be negative")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errors.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// String returns a JSON representation of the config with secrets omitted.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
