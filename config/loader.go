// Package config provides configuration loading and parsing functionality.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFormat represents the configuration file format.
type ConfigFormat string

const (
	FormatYAML ConfigFormat = "yaml"
	FormatJSON ConfigFormat = "json"
)

// Loader handles configuration loading from various sources.
type Loader struct {
	// Configuration search paths
	searchPaths []string

	// Environment variable prefix
	envPrefix string

	// Default configuration
	defaultConfig *Config
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		searchPaths: []string{
			".",
			"./config",
			"./configs",
			"/etc/molniya",
			os.Getenv("HOME") + "/.molniya",
		},
		envPrefix:     "MOLNIYA",
		defaultConfig: DefaultConfig(),
	}
}

// SetSearchPaths sets the configuration file search paths.
func (l *Loader) SetSearchPaths(paths []string) *Loader {
	l.searchPaths = paths
	return l
}

// SetEnvPrefix sets the environment variable prefix.
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// SetDefaultConfig sets the default configuration.
func (l *Loader) SetDefaultConfig(config *Config) *Loader {
	l.defaultConfig = config
	return l
}

// LoadFromFile loads configuration from a specific file, merged over the
// defaults, with environment overrides applied on top.
func (l *Loader) LoadFromFile(filename string) (*Config, error) {
	return l.loadFromFile(filename)
}

// LoadFromReader loads configuration from an io.Reader.
func (l *Loader) LoadFromReader(reader io.Reader, format ConfigFormat) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration data: %w", err)
	}

	return l.parseConfig(data, format)
}

// AutoLoad discovers a configuration file in the search paths and loads
// it. Without a file, the defaults plus environment overrides are used.
func (l *Loader) AutoLoad() (*Config, error) {
	configFile, _, err := l.findConfigFile()
	if err != nil {
		if err != ErrConfigFileNotFound {
			return nil, err
		}
		config := l.defaults()
		if err := l.loadFromEnv(config); err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
		return config, nil
	}

	return l.loadFromFile(configFile)
}

// findConfigFile searches for configuration files in search paths.
func (l *Loader) findConfigFile() (string, ConfigFormat, error) {
	filenames := []string{
		"molniya.yaml", "molniya.yml",
		"config.yaml", "config.yml",
		"molniya.json", "config.json",
	}

	for _, searchPath := range l.searchPaths {
		for _, filename := range filenames {
			fullPath := filepath.Join(searchPath, filename)
			if _, err := os.Stat(fullPath); err == nil {
				format, err := formatFromExt(filename)
				if err != nil {
					continue
				}
				return fullPath, format, nil
			}
		}
	}

	return "", "", ErrConfigFileNotFound
}

func formatFromExt(filename string) (ConfigFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported config file format: %s", filepath.Ext(filename))
	}
}

func (l *Loader) defaults() *Config {
	if l.defaultConfig != nil {
		cp := *l.defaultConfig
		return &cp
	}
	return DefaultConfig()
}

// loadFromFile loads configuration from a file.
func (l *Loader) loadFromFile(filename string) (*Config, error) {
	format, err := formatFromExt(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, err
	}

	// Merge with default config to fill missing fields
	config = l.mergeConfig(l.defaults(), config)

	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// parseConfig parses configuration data based on format.
func (l *Loader) parseConfig(data []byte, format ConfigFormat) (*Config, error) {
	config := &Config{}

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}

	return config, nil
}

// loadFromEnv loads configuration overrides from environment variables.
func (l *Loader) loadFromEnv(config *Config) error {
	// App configuration
	if val := os.Getenv(l.envPrefix + "_APP_NAME"); val != "" {
		config.App.Name = val
	}
	if val := os.Getenv(l.envPrefix + "_APP_VERSION"); val != "" {
		config.App.Version = val
	}
	if val := os.Getenv(l.envPrefix + "_APP_DEBUG"); val != "" {
		config.App.Debug = strings.ToLower(val) == "true"
	}

	// Log configuration
	if val := os.Getenv(l.envPrefix + "_LOG_LEVEL"); val != "" {
		config.Log.Level = val
	}
	if val := os.Getenv(l.envPrefix + "_LOG_FORMAT"); val != "" {
		config.Log.Format = val
	}
	if val := os.Getenv(l.envPrefix + "_LOG_OUTPUT"); val != "" {
		config.Log.OutputPath = val
	}

	// Scheduler configuration
	if val := os.Getenv(l.envPrefix + "_SCHEDULER_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Scheduler.Workers = n
		}
	}
	if val := os.Getenv(l.envPrefix + "_SCHEDULER_POLL_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.Scheduler.PollTimeout = d
		}
	}
	if val := os.Getenv(l.envPrefix + "_SCHEDULER_CPU_AFFINITY"); val != "" {
		if mask, err := strconv.ParseUint(val, 0, 64); err == nil {
			config.Scheduler.CPUAffinity = mask
		}
	}

	// Queue configuration
	if val := os.Getenv(l.envPrefix + "_QUEUE_RING_SIZE"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 64); err == nil {
			config.Queue.RingSize = n
		}
	}
	if val := os.Getenv(l.envPrefix + "_QUEUE_SEGMENT_SIZE"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 64); err == nil {
			config.Queue.SegmentSize = n
		}
	}

	return nil
}

// mergeConfig merges user config with default config.
func (l *Loader) mergeConfig(defaultConfig, userConfig *Config) *Config {
	merged := *defaultConfig

	if userConfig.App.Name != "" {
		merged.App.Name = userConfig.App.Name
	}
	if userConfig.App.Version != "" {
		merged.App.Version = userConfig.App.Version
	}
	merged.App.Debug = userConfig.App.Debug

	if userConfig.Log.Level != "" {
		merged.Log.Level = userConfig.Log.Level
	}
	if userConfig.Log.Format != "" {
		merged.Log.Format = userConfig.Log.Format
	}
	if userConfig.Log.OutputPath != "" {
		merged.Log.OutputPath = userConfig.Log.OutputPath
	}
	merged.Log.AddCaller = userConfig.Log.AddCaller

	if userConfig.Scheduler.Workers != 0 {
		merged.Scheduler.Workers = userConfig.Scheduler.Workers
	}
	merged.Scheduler.ExtraScheduler = userConfig.Scheduler.ExtraScheduler
	if userConfig.Scheduler.PollTimeout != 0 {
		merged.Scheduler.PollTimeout = userConfig.Scheduler.PollTimeout
	}
	if userConfig.Scheduler.CPUAffinity != 0 {
		merged.Scheduler.CPUAffinity = userConfig.Scheduler.CPUAffinity
	}

	if userConfig.Queue.RingSize != 0 {
		merged.Queue.RingSize = userConfig.Queue.RingSize
	}
	if userConfig.Queue.SegmentSize != 0 {
		merged.Queue.SegmentSize = userConfig.Queue.SegmentSize
	}
	if userConfig.Queue.SpinLimit != 0 {
		merged.Queue.SpinLimit = userConfig.Queue.SpinLimit
	}
	if userConfig.Queue.MaxSpinAttempts != 0 {
		merged.Queue.MaxSpinAttempts = userConfig.Queue.MaxSpinAttempts
	}
	if userConfig.Queue.SleepInterval != 0 {
		merged.Queue.SleepInterval = userConfig.Queue.SleepInterval
	}

	if userConfig.Custom != nil {
		if merged.Custom == nil {
			merged.Custom = make(map[string]interface{})
		}
		for k, v := range userConfig.Custom {
			merged.Custom[k] = v
		}
	}

	return &merged
}
