package config

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel     string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat    string `yaml:"log_format"` // json, console
	BcryptCost   int    `yaml:"bcrypt_cost"`
	Seed         bool   `yaml:"seed"` // register the demo accounts at startup
	MaxLineBytes int    `yaml:"max_line_bytes"`
}

func Default() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "console",
		BcryptCost:   bcrypt.DefaultCost,
		Seed:         false,
		MaxLineBytes: 64 * 1024,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then SOCIALSIM_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("SOCIALSIM_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}

	if format := os.Getenv("SOCIALSIM_LOG_FORMAT"); format != "" {
		c.LogFormat = format
	}

	if costStr := os.Getenv("SOCIALSIM_BCRYPT_COST"); costStr != "" {
		if cost, err := strconv.Atoi(costStr); err == nil {
			c.BcryptCost = cost
		}
	}

	if seedStr := os.Getenv("SOCIALSIM_SEED"); seedStr != "" {
		if seed, err := strconv.ParseBool(seedStr); err == nil {
			c.Seed = seed
		}
	}

	if sizeStr := os.Getenv("SOCIALSIM_MAX_LINE_BYTES"); sizeStr != "" {
		if size, err := strconv.Atoi(sizeStr); err == nil {
			c.MaxLineBytes = size
		}
	}
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log_format %q", c.LogFormat)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost %d out of range [%d, %d]", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.MaxLineBytes <= 0 {
		return fmt.Errorf("max_line_bytes must be positive")
	}
	return nil
}
