package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// LoggingConfig contains logging configuration. Format is always JSON
// in production builds; level accepts debug, info, warn, error.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains filesystem locations.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	ExportDir    string `yaml:"export_dir" envconfig:"EXPORT_DIR" validate:"required"`
	HistoryFile  string `yaml:"history_file" envconfig:"HISTORY_FILE" validate:"required"`
	RegistryFile string `yaml:"registry_file" envconfig:"REGISTRY_FILE"`
}

// PipelineConfig tunes normalization and anomaly detection.
type PipelineConfig struct {
	Grouping       string  `yaml:"grouping" envconfig:"GROUPING" validate:"oneof=daily weekly monthly"`
	HeaderScanRows int     `yaml:"header_scan_rows" envconfig:"HEADER_SCAN_ROWS" validate:"min=1"`
	MinHeaderScore float64 `yaml:"min_header_score" envconfig:"MIN_HEADER_SCORE" validate:"gt=0,lte=1"`
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" envconfig:"FUZZY_THRESHOLD" validate:"gte=0,lt=1"`
	WindowSizes    []int   `yaml:"window_sizes" envconfig:"WINDOW_SIZES" validate:"min=1,dive,min=2"`
	ZThreshold     float64 `yaml:"z_threshold" envconfig:"Z_THRESHOLD" validate:"gt=0"`
	MinSamples     int     `yaml:"min_samples" envconfig:"MIN_SAMPLES" validate:"min=2"`
}

// RateLimitConfig contains API rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gt=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"min=1"`
}

// Load builds configuration from defaults, an optional YAML file, and
// environment variables, in increasing precedence. Defaults live in
// Default(), not in envconfig default tags; a default tag would be
// re-applied by Process and overwrite file-loaded values whenever the
// corresponding variable is unset.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		fileCfg, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		*cfg = *fileCfg
	}

	if err := envconfig.Process("TYREPULSE", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile reads a YAML config over the defaults.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

// configFilePath returns the first existing config file location or
// an empty string when only env vars apply.
func configFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			DataDir:     "data",
			ExportDir:   "exports",
			HistoryFile: "data/history.json",
		},
		Pipeline: PipelineConfig{
			Grouping:       "daily",
			HeaderScanRows: 5,
			MinHeaderScore: 0.5,
			FuzzyThreshold: 0.25,
			WindowSizes:    []int{7, 30, 90},
			ZThreshold:     2,
			MinSamples:     3,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     100,
			Burst:   50,
		},
	}
}
