// Package cmd implements the trellis command line interface.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trellisgraph/trellis/internal/config"
	"github.com/trellisgraph/trellis/internal/log"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	dbFlag    string
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "trellis",
	Short: "A composability graph engine for non-fungible assets",
	Long: `Trellis maintains a forest of non-fungible nodes composed into each
other, with an attachment ledger for fungible and counted resources.
Run 'trellis serve' to start the daemon, or use the link/retarget/unlink
and node commands to operate on the local database directly.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.trellis/trellis.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"enable debug logging to a log file")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "",
		"path to the composition database (overrides config)")

	_ = viper.BindPFlag("db_path", rootCmd.PersistentFlags().Lookup("db"))
}

// defaultConfigPath returns ~/.trellis/trellis.yaml, or empty string if the
// home dir is unavailable.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".trellis", "trellis.yaml")
}

// configFilePath returns the config file actually in use.
func configFilePath() string {
	if path := viper.ConfigFileUsed(); path != "" {
		return path
	}
	if cfgFile != "" {
		return cfgFile
	}
	return defaultConfigPath()
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("db_path", defaults.DBPath)
	viper.SetDefault("http.addr", defaults.HTTP.Addr)
	viper.SetDefault("engine.address", defaults.Engine.Address)
	viper.SetDefault("engine.max_depth", defaults.Engine.MaxDepth)
	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigFile(defaultConfigPath())
	}

	if err := viper.ReadInConfig(); err != nil {
		// First run: create a commented default config and retry.
		if os.IsNotExist(err) {
			if writeErr := config.WriteDefaultConfig(configFilePath()); writeErr == nil {
				_ = viper.ReadInConfig()
			}
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// initLogging sets up the debug log when enabled. Returns a cleanup func.
func initLogging() (func(), error) {
	debug := debugFlag || os.Getenv("TRELLIS_DEBUG") != ""
	if !debug {
		return func() {}, nil
	}

	logPath := os.Getenv("TRELLIS_LOG")
	if logPath == "" {
		logPath = "debug.log"
	}
	cleanup, err := log.Init(logPath)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	applyLogLevel(cfg.Log)
	return cleanup, nil
}

// applyLogLevel pushes the configured level into the logger. Invalid levels
// were already rejected by config validation; fall back to info here.
func applyLogLevel(lc config.LogConfig) {
	level, err := log.ParseLevel(lc.Level)
	if err != nil {
		level = log.LevelInfo
	}
	log.SetMinLevel(level)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
