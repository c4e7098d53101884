package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigValidFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "structwire.yaml")

	configContent := `
schema: "types.yaml"
protocol: "binary"
max_depth: 16
limits:
  max_string_length: 1024
registry:
  path: "/var/lib/structwire/registry.db"
s3:
  bucket: "records"
  prefix: "prod"
  encoding: "none"
log:
  level: "debug"
  format: "json"
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configFile)
	require.NoError(t, err)

	assert.Equal(t, "types.yaml", config.Schema)
	assert.Equal(t, "binary", config.Protocol)
	assert.Equal(t, 16, config.MaxDepth)
	assert.Equal(t, 1024, config.Limits.MaxStringLength)
	assert.Equal(t, DefaultConfig().Limits.MaxContainerSize, config.Limits.MaxContainerSize, "unset keys keep defaults")
	assert.Equal(t, "/var/lib/structwire/registry.db", config.Registry.Path)
	assert.Equal(t, "records", config.S3.Bucket)
	assert.Equal(t, "none", config.S3.Encoding)
	assert.Equal(t, "debug", config.Log.Level)
	assert.NoError(t, config.Validate())
}

func TestLoadConfigNonExistentFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "invalid.yaml")

	err := os.WriteFile(configFile, []byte(`
invalid: yaml: content:
  - missing
    proper: indentation
`), 0644)
	require.NoError(t, err)

	_, err = LoadConfig(configFile)
	assert.Error(t, err)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "empty.yaml")

	err := os.WriteFile(configFile, []byte(""), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configFile)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "structwire.yaml")

	config := DefaultConfig()
	config.Protocol = "binary"
	config.S3.Bucket = "records"
	require.NoError(t, SaveConfig(config, configFile))

	loaded, err := LoadConfig(configFile)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "default", mutate: func(c *Config) {}},
		{name: "empty version is filled", mutate: func(c *Config) { c.Version = "" }},
		{name: "empty schema", mutate: func(c *Config) { c.Schema = "" }, wantErr: true},
		{name: "unknown protocol", mutate: func(c *Config) { c.Protocol = "json" }, wantErr: true},
		{name: "zero depth", mutate: func(c *Config) { c.MaxDepth = 0 }, wantErr: true},
		{name: "negative limit", mutate: func(c *Config) { c.Limits.MaxContainerSize = -1 }, wantErr: true},
		{name: "zero limits disable checks", mutate: func(c *Config) { c.Limits = LimitsConfig{} }},
		{name: "empty registry path", mutate: func(c *Config) { c.Registry.Path = "" }, wantErr: true},
		{name: "unknown encoding", mutate: func(c *Config) { c.S3.Encoding = "gzip" }, wantErr: true},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: true},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigApplyEnv(t *testing.T) {
	env := map[string]string{
		"STRUCTWIRE_PROTOCOL":      "binary",
		"STRUCTWIRE_MAX_DEPTH":     "8",
		"STRUCTWIRE_REGISTRY_PATH": "/tmp/reg.db",
		"STRUCTWIRE_S3_BUCKET":     "env-bucket",
		"STRUCTWIRE_LOG_LEVEL":     "error",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	config := DefaultConfig()
	require.NoError(t, config.ApplyEnv(lookup))
	assert.Equal(t, "binary", config.Protocol)
	assert.Equal(t, 8, config.MaxDepth)
	assert.Equal(t, "/tmp/reg.db", config.Registry.Path)
	assert.Equal(t, "env-bucket", config.S3.Bucket)
	assert.Equal(t, "error", config.Log.Level)

	env["STRUCTWIRE_MAX_DEPTH"] = "deep"
	assert.Error(t, DefaultConfig().ApplyEnv(lookup))
}

func TestConfigWireProtocol(t *testing.T) {
	config := DefaultConfig()
	proto, err := config.WireProtocol()
	require.NoError(t, err)
	assert.Equal(t, "compact", proto.Name())

	config.Protocol = "binary"
	proto, err = config.WireProtocol()
	require.NoError(t, err)
	assert.Equal(t, "binary", proto.Name())
}
