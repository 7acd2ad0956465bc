package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/trellisgraph/trellis/internal/graph"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.Equal(t, "localhost:7401", cfg.HTTP.Addr)
	require.Equal(t, "trellis:engine", cfg.Engine.Address)
	require.Equal(t, graph.DefaultMaxDepth, cfg.Engine.MaxDepth)
	require.Equal(t, "info", cfg.Log.Level)
	require.False(t, cfg.Tracing.Enabled)
	require.Equal(t, "file", cfg.Tracing.Exporter)
	require.Equal(t, 1.0, cfg.Tracing.SampleRate)
	require.NoError(t, cfg.Validate())
}

func TestValidateEngine_NegativeDepth(t *testing.T) {
	err := ValidateEngine(EngineConfig{MaxDepth: -1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_depth")
}

func TestValidateTracing_SampleRateRange(t *testing.T) {
	require.NoError(t, ValidateTracing(TracingConfig{SampleRate: 0.5}))
	require.Error(t, ValidateTracing(TracingConfig{SampleRate: -0.1}))
	require.Error(t, ValidateTracing(TracingConfig{SampleRate: 1.1}))
}

func TestValidateTracing_Exporter(t *testing.T) {
	for _, exporter := range []string{"", "none", "file", "stdout", "otlp"} {
		require.NoError(t, ValidateTracing(TracingConfig{Exporter: exporter, SampleRate: 1.0}), "exporter %q", exporter)
	}
	require.Error(t, ValidateTracing(TracingConfig{Exporter: "jaeger", SampleRate: 1.0}))
}

func TestValidateTracing_EnabledRequiresPaths(t *testing.T) {
	err := ValidateTracing(TracingConfig{Enabled: true, Exporter: "file", SampleRate: 1.0})
	require.Error(t, err)
	require.Contains(t, err.Error(), "file_path")

	err = ValidateTracing(TracingConfig{Enabled: true, Exporter: "otlp", SampleRate: 1.0})
	require.Error(t, err)
	require.Contains(t, err.Error(), "otlp_endpoint")

	require.NoError(t, ValidateTracing(TracingConfig{
		Enabled: true, Exporter: "otlp", OTLPEndpoint: "localhost:4317", SampleRate: 1.0,
	}))
}

func TestValidateLog(t *testing.T) {
	require.NoError(t, ValidateLog(LogConfig{}))
	require.NoError(t, ValidateLog(LogConfig{Level: "debug"}))
	require.Error(t, ValidateLog(LogConfig{Level: "verbose"}))
}

func TestDefaultConfigTemplate_IsValidYAML(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(DefaultConfigTemplate()), &cfg))
	require.True(t, strings.Contains(DefaultConfigTemplate(), "directory:"))
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trellis.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	var cfg Config
	data := readFile(t, path)
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	require.Equal(t, "localhost:7401", cfg.HTTP.Addr)
	require.Contains(t, cfg.Directory.Collections, "kanaria")
}
