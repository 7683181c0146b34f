// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all storeprobe configuration.
type Config struct {
	API       API       `yaml:"api"`
	Queue     Queue     `yaml:"queue"`
	Probe     Probe     `yaml:"probe"`
	Log       Log       `yaml:"log"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// API holds catalog server connection settings.
type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Queue holds queue viewer settings.
type Queue struct {
	Name string `yaml:"name"`
}

// Probe holds cache probe settings.
type Probe struct {
	Delay time.Duration `yaml:"delay"` // Wait between the two probe requests
}

// Log holds structured log output settings.
type Log struct {
	File  string `yaml:"file"`  // Empty disables logging
	Level string `yaml:"level"` // "debug" | "info" | "warn" | "error"
}

// Telemetry holds OpenTelemetry export settings.
type Telemetry struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint"` // Empty keeps no-op providers
	ServiceName  string  `yaml:"service_name"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: API{
			BaseURL: "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
		Queue: Queue{
			Name: "orders",
		},
		Probe: Probe{
			Delay: 2 * time.Second,
		},
		Log: Log{
			Level: "info",
		},
		Telemetry: Telemetry{
			ServiceName: "storeprobe",
			SampleRate:  1.0,
		},
	}
}

// DefaultPaths returns the user and project config file locations, lowest
// priority first. The user path is skipped when no home directory is known.
func DefaultPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "storeprobe", "config.yaml"))
	}
	return append(paths, filepath.Join(".storeprobe", "config.yaml"))
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// LoadDotEnv reads KEY=value pairs from a .env file into the process
// environment. Variables already set are left untouched, so the real
// environment wins. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: loading %s: %w", path, err)
	}
	return nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url cannot be empty")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("config: api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive, got %v", c.API.Timeout)
	}
	if c.Queue.Name == "" {
		return errors.New("config: queue.name cannot be empty")
	}
	if c.Probe.Delay <= 0 {
		return fmt.Errorf("config: probe.delay must be positive, got %v", c.Probe.Delay)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("config: log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("config: telemetry.sample_rate must be within [0, 1], got %v", c.Telemetry.SampleRate)
	}
	return nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: STOREPROBE_BASE_URL, STOREPROBE_TIMEOUT,
// STOREPROBE_QUEUE, STOREPROBE_PROBE_DELAY, STOREPROBE_LOG_FILE,
// STOREPROBE_OTLP_ENDPOINT.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("STOREPROBE_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("STOREPROBE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid STOREPROBE_TIMEOUT %q: %w", v, err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("STOREPROBE_QUEUE"); v != "" {
		c.Queue.Name = v
	}
	if v := os.Getenv("STOREPROBE_PROBE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid STOREPROBE_PROBE_DELAY %q: %w", v, err)
		}
		c.Probe.Delay = d
	}
	if v := os.Getenv("STOREPROBE_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("STOREPROBE_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	API       *rawAPI       `yaml:"api"`
	Queue     *rawQueue     `yaml:"queue"`
	Probe     *rawProbe     `yaml:"probe"`
	Log       *rawLog       `yaml:"log"`
	Telemetry *rawTelemetry `yaml:"telemetry"`
}

type rawAPI struct {
	BaseURL *string        `yaml:"base_url"`
	Timeout *time.Duration `yaml:"timeout"`
}

type rawQueue struct {
	Name *string `yaml:"name"`
}

type rawProbe struct {
	Delay *time.Duration `yaml:"delay"`
}

type rawLog struct {
	File  *string `yaml:"file"`
	Level *string `yaml:"level"`
}

type rawTelemetry struct {
	OTLPEndpoint *string  `yaml:"otlp_endpoint"`
	ServiceName  *string  `yaml:"service_name"`
	SampleRate   *float64 `yaml:"sample_rate"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if layer.API != nil {
		if layer.API.BaseURL != nil {
			c.API.BaseURL = *layer.API.BaseURL
		}
		if layer.API.Timeout != nil {
			c.API.Timeout = *layer.API.Timeout
		}
	}
	if layer.Queue != nil && layer.Queue.Name != nil {
		c.Queue.Name = *layer.Queue.Name
	}
	if layer.Probe != nil && layer.Probe.Delay != nil {
		c.Probe.Delay = *layer.Probe.Delay
	}
	if layer.Log != nil {
		if layer.Log.File != nil {
			c.Log.File = *layer.Log.File
		}
		if layer.Log.Level != nil {
			c.Log.Level = *layer.Log.Level
		}
	}
	if layer.Telemetry != nil {
		if layer.Telemetry.OTLPEndpoint != nil {
			c.Telemetry.OTLPEndpoint = *layer.Telemetry.OTLPEndpoint
		}
		if layer.Telemetry.ServiceName != nil {
			c.Telemetry.ServiceName = *layer.Telemetry.ServiceName
		}
		if layer.Telemetry.SampleRate != nil {
			c.Telemetry.SampleRate = *layer.Telemetry.SampleRate
		}
	}
}
