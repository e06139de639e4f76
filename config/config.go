// Package config provides configuration parsing for the search agent.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the agent process configuration.
type Config struct {
	// GroupID identifies the agent group this process serves. Overridden by
	// the process's positional argument when one is given.
	GroupID string `yaml:"group_id"`

	// LogFile path for structured logs. Empty means stderr only.
	LogFile string `yaml:"log_file"`

	// Store holds the job/queue database connection settings.
	Store StoreConfig `yaml:"store"`

	// Backend holds the index backend connection settings.
	Backend BackendConfig `yaml:"backend"`

	// Batch holds adaptive batch-sizing tunables for the scan phase.
	Batch BatchConfig `yaml:"batch"`

	// Cache holds YARA compile cache tunables.
	Cache CacheConfig `yaml:"cache"`

	// Observability holds metrics/health/heartbeat settings.
	Observability ObservabilityConfig `yaml:"observability"`
}

// StoreConfig holds Redis connection settings for the job/queue store.
type StoreConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// TaskTimeoutSeconds is parsed and saved but not read by the store:
	// agent_get_task re-polls for a reload signal on a fixed interval
	// (store.pollInterval) regardless of this value.
	TaskTimeoutSeconds int `yaml:"task_timeout_seconds"`
}

// BackendConfig holds index backend HTTP client settings.
type BackendConfig struct {
	URL         string `yaml:"url"`
	TimeoutSecs int    `yaml:"timeout_seconds"`
	MaxRetries  int    `yaml:"max_retries"`
}

// BatchConfig holds the adaptive batch-sizing tunables governing how many
// files an agent claims from an iterator per YARA scan round.
type BatchConfig struct {
	MinBatch int `yaml:"min_batch"`
	MaxBatch int `yaml:"max_batch"`
}

// CacheConfig holds YARA compile cache tunables.
type CacheConfig struct {
	Capacity int `yaml:"capacity"`
}

// ObservabilityConfig holds metrics/health/heartbeat settings.
type ObservabilityConfig struct {
	Enabled          bool   `yaml:"enabled"`
	MetricsAddr      string `yaml:"metrics_addr"`
	HeartbeatPath    string `yaml:"heartbeat_path"`
	HeartbeatEnabled bool   `yaml:"heartbeat_enabled"`
	FallbackPath     string `yaml:"fallback_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		GroupID: "default",
		LogFile: "",
		Store: StoreConfig{
			Addr:               "127.0.0.1:6379",
			DB:                 0,
			TaskTimeoutSeconds: 30,
		},
		Backend: BackendConfig{
			URL:         "http://127.0.0.1:9281",
			TimeoutSecs: 30,
			MaxRetries:  3,
		},
		Batch: BatchConfig{
			MinBatch: 10,
			MaxBatch: 500,
		},
		Cache: CacheConfig{
			Capacity: 32,
		},
		Observability: ObservabilityConfig{
			Enabled:          true,
			MetricsAddr:      ":9282",
			HeartbeatEnabled: true,
			HeartbeatPath:    "/var/run/mquery-agent/heartbeat.json",
			FallbackPath:     "/var/run/mquery-agent/fallback.json",
		},
	}
}

// LoadConfig loads configuration from a YAML file, merging with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
