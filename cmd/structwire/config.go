package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/hengadev/structwire"
	"github.com/hengadev/structwire/internal/monitoring"
	"github.com/hengadev/structwire/protocol"
	"github.com/hengadev/structwire/protocol/binary"
	"github.com/hengadev/structwire/protocol/compact"
)

// Config represents the configuration of the structwire command
type Config struct {
	Version  string         `yaml:"version"`
	Schema   string         `yaml:"schema"`
	Protocol string         `yaml:"protocol"`
	MaxDepth int            `yaml:"max_depth"`
	Limits   LimitsConfig   `yaml:"limits"`
	Registry RegistryConfig `yaml:"registry"`
	S3       S3Config       `yaml:"s3"`
	Log      LogConfig      `yaml:"log"`
}

// LimitsConfig bounds what a reader accepts from a stream
type LimitsConfig struct {
	MaxStringLength  int `yaml:"max_string_length"`
	MaxContainerSize int `yaml:"max_container_size"`
}

// RegistryConfig locates the structural id registry
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// S3Config configures the record store
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Encoding string `yaml:"encoding"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig loads configuration from a YAML file. Keys missing from the
// file keep their default values.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  "1",
		Schema:   "schema.yaml",
		Protocol: structwire.DefaultProtocol,
		MaxDepth: structwire.DefaultMaxDepth,
		Limits: LimitsConfig{
			MaxStringLength:  protocol.DefaultMaxStringLength,
			MaxContainerSize: protocol.DefaultMaxContainerSize,
		},
		Registry: RegistryConfig{Path: structwire.DefaultRegistryPath},
		S3:       S3Config{Encoding: "zstd"},
		Log:      LogConfig{Level: "warn", Format: "text"},
	}
}

// ApplyEnv overrides settings from STRUCTWIRE_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(structwire.EnvProtocol); ok && v != "" {
		c.Protocol = v
	}
	if v, ok := lookup(structwire.EnvMaxDepth); ok && v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", structwire.EnvMaxDepth, err)
		}
		c.MaxDepth = depth
	}
	if v, ok := lookup(structwire.EnvRegistryPath); ok && v != "" {
		c.Registry.Path = v
	}
	if v, ok := lookup(structwire.EnvS3Bucket); ok && v != "" {
		c.S3.Bucket = v
	}
	if v, ok := lookup(structwire.EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version == "" {
		c.Version = "1"
	}

	if c.Schema == "" {
		return fmt.Errorf("schema cannot be empty")
	}

	if _, err := protocolByName(c.Protocol, protocol.Limits{}); err != nil {
		return err
	}

	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}

	if c.Limits.MaxStringLength < 0 || c.Limits.MaxContainerSize < 0 {
		return fmt.Errorf("limits cannot be negative")
	}

	if c.Registry.Path == "" {
		return fmt.Errorf("registry path cannot be empty")
	}

	switch c.S3.Encoding {
	case "", "none", "zstd":
	default:
		return fmt.Errorf("s3 encoding must be one of: none, zstd")
	}

	if _, err := monitoring.ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := monitoring.ParseLogFormat(c.Log.Format); err != nil {
		return err
	}

	return nil
}

// WireProtocol builds the configured protocol with the configured limits.
func (c *Config) WireProtocol() (structwire.Protocol, error) {
	return protocolByName(c.Protocol, protocol.Limits{
		MaxStringLength:  c.Limits.MaxStringLength,
		MaxContainerSize: c.Limits.MaxContainerSize,
	})
}

func protocolByName(name string, limits protocol.Limits) (structwire.Protocol, error) {
	opts := []protocol.Option{
		protocol.WithMaxStringLength(limits.MaxStringLength),
		protocol.WithMaxContainerSize(limits.MaxContainerSize),
	}
	switch name {
	case "binary":
		return binary.New(opts...), nil
	case "compact":
		return compact.New(opts...), nil
	default:
		return nil, fmt.Errorf("protocol must be one of: binary, compact (got '%s')", name)
	}
}
