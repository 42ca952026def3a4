package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/voxar-platform/spatialmetrics/pkg/metrics"
)

// Config is the daemon configuration.
type Config struct {
	Metrics metrics.Config `yaml:"metrics" mapstructure:"metrics"`
	Server  ServerConfig   `yaml:"server" mapstructure:"server"`
	Logging LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig  `yaml:"tracing" mapstructure:"tracing"`
}

// ServerConfig holds the scrape/health HTTP surface configuration.
type ServerConfig struct {
	Address      string        `yaml:"address" mapstructure:"address"`
	Port         int           `yaml:"port" mapstructure:"port"`
	MetricsPath  string        `yaml:"metrics_path" mapstructure:"metrics_path"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	OutputFile string `yaml:"output_file" mapstructure:"output_file"`
}

// TracingConfig holds tracing-related configuration. Spans are exported to
// stdout; remote exporters are out of scope for this service.
type TracingConfig struct {
	Enabled       bool    `yaml:"enabled" mapstructure:"enabled"`
	ServiceName   string  `yaml:"service_name" mapstructure:"service_name"`
	SamplingRatio float64 `yaml:"sampling_ratio" mapstructure:"sampling_ratio"`
	PrettyPrint   bool    `yaml:"pretty_print" mapstructure:"pretty_print"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Metrics: metrics.DefaultConfig(),
		Server: ServerConfig{
			Address:      "localhost",
			Port:         9100,
			MetricsPath:  "/metrics",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:       false,
			ServiceName:   "spatialmetrics",
			SamplingRatio: 1.0,
		},
	}
}

// LoadConfig loads configuration from a file and environment variables,
// falling back to defaults for anything unset.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("spatialmetricsd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.config/spatialmetrics")
		v.AddConfigPath("/etc/spatialmetrics")
	}

	v.SetEnvPrefix("SPATIALMETRICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine, defaults apply.
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// SaveConfig writes the configuration to a YAML file.
func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Metrics.RetentionWindow <= 0 {
		return fmt.Errorf("retention window must be positive")
	}
	if c.Metrics.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	if c.Metrics.SampleCap < 1 {
		return fmt.Errorf("sample cap must be at least 1")
	}
	if !sort.Float64sAreSorted(c.Metrics.ExpositionBuckets) {
		return fmt.Errorf("exposition buckets must be in ascending order")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.MetricsPath, "/") {
		return fmt.Errorf("metrics path must start with /")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be trace, debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logging.Format)
	}

	if c.Tracing.SamplingRatio < 0 || c.Tracing.SamplingRatio > 1 {
		return fmt.Errorf("sampling ratio must be in [0, 1]")
	}
	return nil
}
