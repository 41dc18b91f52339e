// Package config loads and validates the daemon configuration file.
// Environment variables referenced as ${VAR} in the YAML are expanded before
// parsing; a .env file next to the working directory is loaded first so local
// overrides work without exporting anything.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
)

// DefaultConfigFile is the config filename looked up when none is given.
const DefaultConfigFile = "inventoryd.yaml"

// Config is the daemon configuration.
type Config struct {
	Version string        `yaml:"version"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Journal JournalConfig `yaml:"journal,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
	NATS    NATSConfig    `yaml:"nats,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig locates the data directory holding the history and settings
// blobs.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// JournalConfig controls the SQLite mutation journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"` // defaults to <data_dir>/journal.db
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// NATSConfig controls the optional NATS notification sink.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// Load reads, expands, parses, normalizes and validates a configuration file.
func Load(configPath string) (*Config, error) {
	// Local overrides; missing .env is fine.
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, ierr.ConfigError("configuration file not found").
			WithContext("path", configPath).Build()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, ierr.WrapError(err, ierr.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).Build()
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, ierr.WrapError(err, ierr.CategoryConfig, "failed to parse config file").
			WithContext("path", configPath).Build()
	}

	if cfg.Version != "" && cfg.Version != "1.0" {
		return nil, ierr.ConfigError("unsupported configuration version").
			WithContext("version", cfg.Version).Build()
	}

	normalize(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{Version: "1.0"}
	normalize(cfg)
	applyDefaults(cfg)
	return cfg
}

func normalize(cfg *Config) {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}

func applyDefaults(cfg *Config) {
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8344
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "./data"
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = filepath.Join(cfg.Storage.DataDir, "journal.db")
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://127.0.0.1:4222"
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = "inventoryd.reminders"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return ierr.ConfigError("server port must be between 1 and 65535").
			WithContext("port", cfg.Server.Port).Build()
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return ierr.ConfigError("nats.url is required when nats is enabled").Build()
	}
	return nil
}

// Init writes a starter configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ierr.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).Build()
	}

	starter := `version: "1.0"

server:
  host: 127.0.0.1
  port: 8344

storage:
  data_dir: ./data

journal:
  enabled: true

metrics:
  enabled: false

# Optional NATS sink for forwarding reminders to external automation.
nats:
  enabled: false
  url: nats://127.0.0.1:4222
  subject: inventoryd.reminders

logging:
  level: info
  format: text
`

	if err := os.WriteFile(configPath, []byte(starter), 0o644); err != nil {
		return ierr.WrapError(err, ierr.CategoryStorage, "failed to write config file").
			WithContext("path", configPath).Build()
	}
	return nil
}
