package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bigbes/openvpn-status-exporter/internal/status"
)

const (
	defaultInterval     = 10
	defaultMetricsAddr  = ":9176"
	defaultOTelInterval = 30
	defaultOTelEndpoint = "localhost:4317"
)

type Config struct {
	LogLevel    string   `yaml:"log_level"`
	Interval    int      `yaml:"interval"` // seconds between collection cycles
	StatusFiles []string `yaml:"status_files"`

	ImprovedNamingSchema   bool  `yaml:"improved_naming_schema"`
	CollectCompression     *bool `yaml:"collect_compression,omitempty"`
	Compression            *bool `yaml:"compression,omitempty"` // deprecated alias of collect_compression
	CollectUserCount       bool  `yaml:"collect_user_count"`
	CollectIndividualUsers *bool `yaml:"collect_individual_users,omitempty"`

	ObservabilityHTTP ObservabilityHTTPConfig `yaml:"observability_http"`
	OTel              OTelConfig              `yaml:"otel"`
	GeoIP             GeoIPConfig             `yaml:"geoip"`
}

type ObservabilityHTTPConfig struct {
	Addr    string `yaml:"addr"`
	Pprof   bool   `yaml:"pprof"`
	Metrics bool   `yaml:"metrics"`
}

type OTelConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // OTLP gRPC collector, host:port
	Insecure bool   `yaml:"insecure"`
	Interval int    `yaml:"interval"` // export interval in seconds
}

type GeoIPConfig struct {
	Path    string `yaml:"path"`    // local MMDB file; empty disables country lookups
	Refresh int    `yaml:"refresh"` // seconds, 0 disables reloading
}

// Default returns a configuration with every default applied and no
// status files.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Interval < 0 {
		return nil, fmt.Errorf("interval must not be negative, got %d", cfg.Interval)
	}
	for i, p := range cfg.StatusFiles {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("status_files entry %d: path is required", i)
		}
	}
	if err := cfg.Policy().Validate(); err != nil {
		return nil, fmt.Errorf("nothing to collect: %w", err)
	}
	if cfg.OTel.Enabled && cfg.OTel.Endpoint == "" {
		return nil, fmt.Errorf("otel: endpoint is required when enabled")
	}
	if cfg.GeoIP.Refresh < 0 {
		return nil, fmt.Errorf("geoip: refresh must not be negative, got %d", cfg.GeoIP.Refresh)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Interval == 0 {
		c.Interval = defaultInterval
	}
	if c.CollectCompression == nil {
		if c.Compression != nil {
			v := *c.Compression
			c.CollectCompression = &v
		} else {
			c.CollectCompression = boolPtr(true)
		}
	}
	c.Compression = nil
	if c.CollectIndividualUsers == nil {
		c.CollectIndividualUsers = boolPtr(true)
	}
	if c.ObservabilityHTTP.Addr == "" {
		c.ObservabilityHTTP.Addr = defaultMetricsAddr
		c.ObservabilityHTTP.Metrics = true
	}
	if c.OTel.Enabled {
		if c.OTel.Endpoint == "" {
			c.OTel.Endpoint = defaultOTelEndpoint
		}
		if c.OTel.Interval == 0 {
			c.OTel.Interval = defaultOTelInterval
		}
	}
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Policy returns the collection policy described by the configuration.
func (c *Config) Policy() status.Policy {
	return status.Policy{
		ImprovedNamingSchema:   c.ImprovedNamingSchema,
		CollectCompression:     c.CollectCompression == nil || *c.CollectCompression,
		CollectUserCount:       c.CollectUserCount,
		CollectIndividualUsers: c.CollectIndividualUsers == nil || *c.CollectIndividualUsers,
	}
}

func (c *Config) CollectionInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

func (c *Config) ParseLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func boolPtr(v bool) *bool { return &v }
