package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for trainckpt
type Config struct {
	// Checkpoint storage and retention
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CheckpointConfig holds checkpoint storage configuration
type CheckpointConfig struct {
	Directory       string `yaml:"directory" json:"directory"`
	MaxCheckpoints  int    `yaml:"max_checkpoints" json:"max_checkpoints"`
	BatchesPerEpoch int    `yaml:"batches_per_epoch" json:"batches_per_epoch"`
	// Timezone used for timestamps given without an offset. Empty means local time.
	Timezone string `yaml:"timezone" json:"timezone"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Checkpoint: CheckpointConfig{
			Directory:       "./checkpoints",
			MaxCheckpoints:  5,
			BatchesPerEpoch: 0, // unknown
			Timezone:        "",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Location resolves the configured timezone
func (c *CheckpointConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if dir := os.Getenv("TRAINCKPT_DIR"); dir != "" {
		c.Checkpoint.Directory = dir
	}
	if v := os.Getenv("TRAINCKPT_MAX_CHECKPOINTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRAINCKPT_MAX_CHECKPOINTS: %w", err))
		} else {
			c.Checkpoint.MaxCheckpoints = n
		}
	}
	if v := os.Getenv("TRAINCKPT_BATCHES_PER_EPOCH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRAINCKPT_BATCHES_PER_EPOCH: %w", err))
		} else {
			c.Checkpoint.BatchesPerEpoch = n
		}
	}
	if tz := os.Getenv("TRAINCKPT_TIMEZONE"); tz != "" {
		c.Checkpoint.Timezone = tz
	}

	if logLevel := os.Getenv("TRAINCKPT_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("TRAINCKPT_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".trainckpt.yaml",
		".trainckpt.yml",
		filepath.Join(home, ".config", "trainckpt", "config.yaml"),
		filepath.Join(home, ".config", "trainckpt", "config.yml"),
		filepath.Join(home, ".trainckpt.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Checkpoint.Directory == "" {
		errs = append(errs, errors.New("checkpoint directory is required"))
	}
	if c.Checkpoint.MaxCheckpoints <= 0 {
		errs = append(errs, errors.New("max checkpoints must be positive"))
	}
	if c.Checkpoint.BatchesPerEpoch < 0 {
		errs = append(errs, errors.New("batches per epoch cannot be negative"))
	}
	if _, err := c.Checkpoint.Location(); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Checkpoint.Timezone, err))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags the user actually set should be present in the map.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dir, ok := flags["dir"].(string); ok && dir != "" {
		c.Checkpoint.Directory = dir
	}
	if maxCkpt, ok := flags["max-checkpoints"].(int); ok {
		c.Checkpoint.MaxCheckpoints = maxCkpt
	}
	if bpe, ok := flags["batches-per-epoch"].(int); ok {
		c.Checkpoint.BatchesPerEpoch = bpe
	}
	if tz, ok := flags["timezone"].(string); ok && tz != "" {
		c.Checkpoint.Timezone = tz
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// godotenv never overrides variables already present in the environment
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".trainckpt.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
