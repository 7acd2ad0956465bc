// Package config provides configuration types and defaults for trellis.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/trellisgraph/trellis/internal/graph"
	"github.com/trellisgraph/trellis/internal/log"
)

// Config holds all configuration options for trellis.
type Config struct {
	DBPath    string          `mapstructure:"db_path"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Log       LogConfig       `mapstructure:"log"`
}

// HTTPConfig holds the daemon's HTTP listener configuration.
type HTTPConfig struct {
	// Addr is the listen address for the API server.
	// Default: "localhost:7401"
	Addr string `mapstructure:"addr"`
}

// EngineConfig holds composition engine tuning.
type EngineConfig struct {
	// Address is the holder address under which the engine keeps custody
	// of linked assets.
	// Default: "trellis:engine"
	Address string `mapstructure:"address"`

	// MaxDepth bounds root-resolution walks. A walk exceeding it reports
	// corruption instead of spinning.
	// Default: 4096
	MaxDepth int `mapstructure:"max_depth"`
}

// DirectoryConfig lists the local collaborators the daemon hosts, by
// address. Each listed address gets a database-backed reference
// collaborator registered at startup.
type DirectoryConfig struct {
	Collections []string `mapstructure:"collections"`
	Currencies  []string `mapstructure:"currencies"`
	MultiAssets []string `mapstructure:"multiassets"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for the "file" exporter.
	// Default: ~/.config/trellis/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for the "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// LogConfig holds structured logging configuration.
type LogConfig struct {
	// Level is the minimum level written: debug, info, warn, error.
	// Default: "info"
	Level string `mapstructure:"level"`
}

// DefaultDBPath returns ~/.trellis/trellis.db, or empty string if the home
// dir is unavailable.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".trellis", "trellis.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/trellis/traces/traces.jsonl or empty string if home
// dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "trellis", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		DBPath: DefaultDBPath(),
		HTTP: HTTPConfig{
			Addr: "localhost:7401",
		},
		Engine: EngineConfig{
			Address:  "trellis:engine",
			MaxDepth: graph.DefaultMaxDepth,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the whole configuration for errors.
func (c Config) Validate() error {
	if err := ValidateEngine(c.Engine); err != nil {
		return err
	}
	if err := ValidateTracing(c.Tracing); err != nil {
		return err
	}
	return ValidateLog(c.Log)
}

// ValidateEngine checks engine configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateEngine(engine EngineConfig) error {
	if engine.MaxDepth < 0 {
		return fmt.Errorf("engine.max_depth must be positive, got %d", engine.MaxDepth)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// ValidateLog checks log configuration for errors.
func ValidateLog(lc LogConfig) error {
	if lc.Level == "" {
		return nil
	}
	if _, err := log.ParseLevel(lc.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Trellis Configuration

# Path to the composition database (default: ~/.trellis/trellis.db)
# db_path: /path/to/trellis.db

# API server settings
http:
  addr: localhost:7401   # Listen address for the daemon API

# Composition engine settings
engine:
  # Holder address under which the engine keeps custody of linked assets
  # address: "trellis:engine"
  #
  # Bound on root-resolution walks; a deeper walk is treated as corruption
  # max_depth: 4096

# Local asset collaborators hosted by the daemon, by address.
# Each listed address gets a database-backed collaborator at startup.
# Use 'trellis mint' to create tokens and balances in them.
directory:
  collections:
    - kanaria
  currencies:
    - gold
  multiassets:
    - gems

# Logging
log:
  level: info   # debug, info, warn, or error; hot-reloaded on config change

# Distributed tracing
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/trellis/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
#
# Example: Send traces to Jaeger via OTLP
# tracing:
#   enabled: true
#   exporter: otlp
#   otlp_endpoint: jaeger.internal:4317
#   sample_rate: 0.1  # Sample 10% of traces
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
