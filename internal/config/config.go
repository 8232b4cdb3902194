package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Directory DirectoryConfig `mapstructure:"directory" yaml:"directory"`
	Collector CollectorConfig `mapstructure:"collector" yaml:"collector"`
	Graph     GraphConfig     `mapstructure:"graph" yaml:"graph"`
	// Collect gets its marching orders from CLI flags, not the config file.
	Collect CollectConfig `mapstructure:"-" yaml:"-"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// DirectoryConfig holds the connection settings for the upstream directory
// service (Microsoft Graph).
type DirectoryConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Tenant  string `mapstructure:"tenant" yaml:"tenant"`
	// Token is the bearer token for the Graph API. Interactive authentication
	// is out of scope; the token comes from the environment or config.
	Token     string        `mapstructure:"token" yaml:"-"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int           `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// CollectorConfig tunes the collection run itself.
type CollectorConfig struct {
	// MaxDepth bounds nested group traversal. Branches beyond it are truncated
	// and flagged, never an error.
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth"`
	// CheckpointEvery is the policy-count cadence for advisory partial-state
	// snapshots. Zero disables checkpointing.
	CheckpointEvery int    `mapstructure:"checkpoint_every" yaml:"checkpoint_every"`
	CheckpointDir   string `mapstructure:"checkpoint_dir" yaml:"checkpoint_dir"`
}

// PostgresConfig holds the connection details for the optional graph store.
type PostgresConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// GraphConfig specifies where the built graph is persisted.
type GraphConfig struct {
	Persist  bool           `mapstructure:"persist" yaml:"persist"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// CollectConfig holds settings populated from CLI flags for a single run.
type CollectConfig struct {
	Output string
	Tenant string
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "camap")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Directory --
	v.SetDefault("directory.base_url", "https://graph.microsoft.com/v1.0")
	v.SetDefault("directory.timeout", "30s")
	v.SetDefault("directory.rate_limit", 10.0)
	v.SetDefault("directory.rate_burst", 5)

	// -- Collector --
	v.SetDefault("collector.max_depth", 10)
	v.SetDefault("collector.checkpoint_every", 25)
	v.SetDefault("collector.checkpoint_dir", ".camap")

	// -- Graph --
	v.SetDefault("graph.persist", false)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults alone.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("directory.token", "CAMAP_DIRECTORY_TOKEN")
	v.BindEnv("graph.postgres.url", "CAMAP_POSTGRES_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Pick the token up directly if Unmarshal didn't.
	if cfg.Directory.Token == "" {
		cfg.Directory.Token = os.Getenv("CAMAP_DIRECTORY_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Directory.BaseURL == "" {
		return fmt.Errorf("directory.base_url is a required configuration field")
	}
	if c.Collector.MaxDepth <= 0 {
		return fmt.Errorf("collector.max_depth must be a positive integer")
	}
	if c.Collector.CheckpointEvery < 0 {
		return fmt.Errorf("collector.checkpoint_every must not be negative")
	}
	if c.Directory.RateLimit <= 0 {
		return fmt.Errorf("directory.rate_limit must be a positive rate")
	}
	if c.Graph.Persist && c.Graph.Postgres.URL == "" {
		return fmt.Errorf("graph.postgres.url is required when graph.persist is enabled")
	}
	return nil
}
