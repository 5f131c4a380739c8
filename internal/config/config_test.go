package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigPrecedence(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yml")
	configContent := []byte(`
debug: false
log_level: "debug"
client:
  timeout: "1m"
  user_agent: "config-agent/1.0"
output:
  format: "json"
`)
	if err := os.WriteFile(configPath, configContent, 0644); err != nil {
		t.Fatal(err)
	}

	// Set environment variables (should override config file)
	os.Setenv("BUGREPORT_OPS_CLIENT_USER_AGENT", "env-agent/2.0")
	os.Setenv("BUGREPORT_OPS_OUTPUT_FORMAT", "yaml")
	defer os.Unsetenv("BUGREPORT_OPS_CLIENT_USER_AGENT")
	defer os.Unsetenv("BUGREPORT_OPS_OUTPUT_FORMAT")

	// Load the configuration
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatal(err)
	}

	// Test config file values
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.LogLevel)
	}

	// Test duration parsing
	expectedTimeout := time.Minute
	if cfg.Client.Timeout != expectedTimeout {
		t.Errorf("expected timeout %v, got %v", expectedTimeout, cfg.Client.Timeout)
	}

	// Test environment variable override
	if cfg.Client.UserAgent != "env-agent/2.0" {
		t.Errorf("expected user agent env-agent/2.0, got %s", cfg.Client.UserAgent)
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("expected output format yaml, got %s", cfg.Output.Format)
	}
}

func TestDefaultValues(t *testing.T) {
	// Load config without any file or env vars
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	// Test default values
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.Client.Timeout != 120*time.Second {
		t.Errorf("expected default timeout 120s, got %v", cfg.Client.Timeout)
	}
	if cfg.Client.UserAgent != "bugreport-ops/1.0" {
		t.Errorf("expected default user agent bugreport-ops/1.0, got %s", cfg.Client.UserAgent)
	}
	if cfg.Output.Format != "table" {
		t.Errorf("expected default output format table, got %s", cfg.Output.Format)
	}
}

func TestConfigFileValidation(t *testing.T) {
	// Test non-existent config file
	_, err := Load("nonexistent.yml")
	if err == nil {
		t.Error("expected error for non-existent config file")
	}

	// Test invalid config file path
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid/config.yml")
	_, err = Load(configPath)
	if err == nil {
		t.Error("expected error for invalid config file path")
	}
}

func TestInvalidDuration(t *testing.T) {
	// Create config with invalid duration
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yml")
	configContent := []byte(`
client:
  timeout: "invalid"
`)
	if err := os.WriteFile(configPath, configContent, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestEnvConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yml")
	if err := os.WriteFile(configPath, []byte("log_level: warn\n"), 0644); err != nil {
		t.Fatal(err)
	}

	os.Setenv(ConfigPathEnvVar, configPath)
	defer os.Unsetenv(ConfigPathEnvVar)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected log level warn from env config path, got %s", cfg.LogLevel)
	}
}
