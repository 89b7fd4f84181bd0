package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. DIFFUSIOND_RUNTIME_URL.
const EnvPrefix = "diffusiond"

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr" split_words:"true"`
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level" split_words:"true"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format" split_words:"true"`

	// Diffusion runtime that owns the accelerator and executes pipelines.
	RuntimeURL            string `json:"runtime_url" yaml:"runtime_url" toml:"runtime_url" split_words:"true"`
	RuntimeAPIKey         string `json:"runtime_api_key" yaml:"runtime_api_key" toml:"runtime_api_key" split_words:"true"`
	RuntimeTimeoutSeconds int    `json:"runtime_timeout_seconds" yaml:"runtime_timeout_seconds" toml:"runtime_timeout_seconds" split_words:"true"`
	ConnectTimeoutSeconds int    `json:"connect_timeout_seconds" yaml:"connect_timeout_seconds" toml:"connect_timeout_seconds" split_words:"true"`
	HubToken              string `json:"hub_token" yaml:"hub_token" toml:"hub_token" split_words:"true"`

	// Device selects placement: auto, cuda or cpu.
	Device        string `json:"device" yaml:"device" toml:"device" split_words:"true"`
	StatusCommand string `json:"status_command" yaml:"status_command" toml:"status_command" split_words:"true"`
	Preload       bool   `json:"preload" yaml:"preload" toml:"preload" split_words:"true"`

	// GenerateTimeoutSeconds bounds one HTTP generation, lock wait included; 0 disables.
	GenerateTimeoutSeconds int      `json:"generate_timeout_seconds" yaml:"generate_timeout_seconds" toml:"generate_timeout_seconds" split_words:"true"`
	MaxBodyBytes           int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" split_words:"true"`
	CORSEnabled            bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled" split_words:"true"`
	CORSOrigins            []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins" split_words:"true"`
	Swagger                bool     `json:"swagger" yaml:"swagger" toml:"swagger" split_words:"true"`
}

// Defaults returns the configuration used when nothing is specified.
func Defaults() Config {
	return Config{
		Addr:                  ":8080",
		LogLevel:              "info",
		LogFormat:             "console",
		RuntimeTimeoutSeconds: 600,
		ConnectTimeoutSeconds: 5,
		Device:                "auto",
		StatusCommand:         "nvidia-smi",
		MaxBodyBytes:          1 << 20,
	}
}

// WithDefaults fills every unspecified field from Defaults.
func (c Config) WithDefaults() Config {
	d := Defaults()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	if c.RuntimeTimeoutSeconds <= 0 {
		c.RuntimeTimeoutSeconds = d.RuntimeTimeoutSeconds
	}
	if c.ConnectTimeoutSeconds <= 0 {
		c.ConnectTimeoutSeconds = d.ConnectTimeoutSeconds
	}
	if c.Device == "" {
		c.Device = d.Device
	}
	if c.StatusCommand == "" {
		c.StatusCommand = d.StatusCommand
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	return c
}

// Validate rejects values the service cannot act on.
func (c Config) Validate() error {
	switch strings.ToLower(c.Device) {
	case "", "auto", "cuda", "cpu":
	default:
		return fmt.Errorf("invalid device %q: want auto, cuda or cpu", c.Device)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log_format %q: want console or json", c.LogFormat)
	}
	return nil
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// ApplyEnv overlays DIFFUSIOND_* environment variables onto cfg.
// Variables that are not set leave the corresponding field untouched.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("env config: %w", err)
	}
	return nil
}
