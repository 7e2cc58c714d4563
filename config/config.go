package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the complete configuration of a registry node: where the ledger
// lives, how the engine scans it, and what the process exposes about itself.
type Config struct {
	Ledger  LedgerConfig  `json:"ledger"`
	Engine  EngineConfig  `json:"engine"`
	Metrics MetricsConfig `json:"metrics"`
	Logging LoggingConfig `json:"logging"`
}

// LedgerConfig describes the NATS JetStream connection and the KV bucket
// that backs the registry.
type LedgerConfig struct {
	URL           string        `json:"url"`
	Bucket        string        `json:"bucket"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
	Timeout       time.Duration `json:"timeout,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
}

// EngineConfig tunes the synchronization engine.
type EngineConfig struct {
	// Fanout bounds concurrent per-record fetches during a sync pass.
	Fanout int `json:"fanout,omitempty"`

	// SyncInterval drives the background resync loop of the daemon
	// subcommand. Zero disables periodic resync.
	SyncInterval time.Duration `json:"sync_interval,omitempty"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	Format string `json:"format,omitempty"` // text or json
}

// Validate checks the configuration for values the process cannot run with.
func (c *Config) Validate() error {
	if c.Ledger.URL == "" {
		return fmt.Errorf("ledger.url is required")
	}
	if c.Ledger.Bucket == "" {
		return fmt.Errorf("ledger.bucket is required")
	}
	if c.Engine.Fanout < 0 {
		return fmt.Errorf("engine.fanout must not be negative")
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port %d out of range", c.Metrics.Port)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q unknown", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q unknown", c.Logging.Format)
	}
	return nil
}

// Loader builds a Config from layered JSON files, environment overrides and
// defaults. Later layers win over earlier ones; environment wins over files.
type Loader struct {
	layers    []string
	envPrefix string
}

// NewLoader creates a loader with the MATERIUM environment prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "MATERIUM"}
}

// AddLayer appends a configuration file layer.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// Load merges defaults, file layers and environment overrides, then
// validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()

	for _, path := range l.layers {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}

		// Duration fields are written as strings ("5s") in config files;
		// convert them to nanoseconds before unmarshaling.
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		parseDurations(raw)

		processed, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("process config %s: %w", path, err)
		}
		if err := json.Unmarshal(processed, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	l.applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Defaults returns the configuration a node runs with when nothing is set.
func Defaults() *Config {
	return &Config{
		Ledger: LedgerConfig{
			URL:           "nats://localhost:4222",
			Bucket:        "materium",
			Timeout:       5 * time.Second,
			ReconnectWait: 2 * time.Second,
			MaxReconnects: -1,
		},
		Engine: EngineConfig{
			Fanout:       8,
			SyncInterval: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// parseDurations converts duration strings to nanoseconds for json
// unmarshaling into time.Duration fields.
func parseDurations(data map[string]any) {
	if ledger, ok := data["ledger"].(map[string]any); ok {
		parseDurationField(ledger, "timeout")
		parseDurationField(ledger, "reconnect_wait")
	}
	if engine, ok := data["engine"].(map[string]any); ok {
		parseDurationField(engine, "sync_interval")
	}
}

func parseDurationField(section map[string]any, field string) {
	if s, ok := section[field].(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			section[field] = d.Nanoseconds()
		}
	}
}

func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(l.envPrefix + "_LEDGER_URL"); val != "" {
		cfg.Ledger.URL = val
	}
	if val := os.Getenv(l.envPrefix + "_LEDGER_BUCKET"); val != "" {
		cfg.Ledger.Bucket = val
	}
	if val := os.Getenv(l.envPrefix + "_LEDGER_USERNAME"); val != "" {
		cfg.Ledger.Username = val
	}
	if val := os.Getenv(l.envPrefix + "_LEDGER_PASSWORD"); val != "" {
		cfg.Ledger.Password = val
	}
	if val := os.Getenv(l.envPrefix + "_LEDGER_TOKEN"); val != "" {
		cfg.Ledger.Token = val
	}
	if val := os.Getenv(l.envPrefix + "_ENGINE_FANOUT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Engine.Fanout = n
		}
	}
	if val := os.Getenv(l.envPrefix + "_ENGINE_SYNC_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Engine.SyncInterval = d
		}
	}
	if val := os.Getenv(l.envPrefix + "_METRICS_ENABLED"); val != "" {
		cfg.Metrics.Enabled = strings.EqualFold(val, "true") || val == "1"
	}
	if val := os.Getenv(l.envPrefix + "_METRICS_PORT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Metrics.Port = n
		}
	}
	if val := os.Getenv(l.envPrefix + "_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = strings.ToLower(val)
	}
	if val := os.Getenv(l.envPrefix + "_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = strings.ToLower(val)
	}
}
