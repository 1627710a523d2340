package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/ini.v1"

	"github.com/c360/genomegate/errors"
)

// EnvConfigPath names the environment variable selecting the config file.
const EnvConfigPath = "GQL_CONF"

// Loader reads the INI config file and applies environment overrides.
type Loader struct {
	envPrefix  string
	validation bool
}

// NewLoader creates a loader with the GENOMEGATE environment prefix and
// validation enabled.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "GENOMEGATE",
		validation: true,
	}
}

// EnableValidation toggles Validate after load.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile reads the config at path. An empty path means defaults only.
func (l *Loader) LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		f, err := ini.LoadSources(ini.LoadOptions{SpaceBeforeInlineComment: true}, path)
		if err != nil {
			return nil, errors.WrapFatal(err, "Loader", "LoadFile", "read config "+path)
		}
		if err := mapSections(f, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "LoadFile", "map config sections")
		}
	}

	l.applyEnvOverrides(cfg)

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Load reads the file named by GQL_CONF.
func (l *Loader) Load() (*Config, error) {
	return l.LoadFile(os.Getenv(EnvConfigPath))
}

func mapSections(f *ini.File, cfg *Config) error {
	sections := []struct {
		name   string
		target any
	}{
		{"GENERAL", &cfg.General},
		{"MONGO DB", &cfg.Mongo},
		{"GRPC", &cfg.GRPC},
		{"CACHE", &cfg.Cache},
		{"LOADER", &cfg.Loader},
	}
	for _, s := range sections {
		if !f.HasSection(s.name) {
			continue
		}
		if err := f.Section(s.name).MapTo(s.target); err != nil {
			return fmt.Errorf("section [%s]: %w", s.name, err)
		}
	}
	return nil
}

// applyEnvOverrides lets deployments inject credentials without editing the file.
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(l.envPrefix + "_MONGO_HOST"); val != "" {
		cfg.Mongo.Host = val
	}
	if val := os.Getenv(l.envPrefix + "_MONGO_USER"); val != "" {
		cfg.Mongo.User = val
	}
	if val := os.Getenv(l.envPrefix + "_MONGO_PASSWORD"); val != "" {
		cfg.Mongo.Password = val
	}
	if val := os.Getenv(l.envPrefix + "_MONGO_DB"); val != "" {
		cfg.Mongo.DB = val
	}
	if val := os.Getenv(l.envPrefix + "_MONGO_BACKEND"); val != "" {
		cfg.Mongo.Backend = val
	}
	if val := os.Getenv(l.envPrefix + "_MONGO_FIXTURES"); val != "" {
		cfg.Mongo.Fixtures = val
	}
	if val := os.Getenv(l.envPrefix + "_GRPC_HOST"); val != "" {
		cfg.GRPC.Host = val
	}
	if val := os.Getenv(l.envPrefix + "_GRPC_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.GRPC.Port = port
		}
	}
	if val := os.Getenv(l.envPrefix + "_NATS_URL"); val != "" {
		cfg.GRPC.NATSURL = val
	}
	if val := os.Getenv(l.envPrefix + "_CACHE_PASSWORD"); val != "" {
		cfg.Cache.Password = val
	}
}
