// env_config_test.go: Tests for Environment Variables Support
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnv(t *testing.T) {
	setupTestEnv(t)

	config, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("Failed to load config from env: %v", err)
	}

	verifyCoreConfig(t, config)
	verifyAuditConfig(t, config)
}

// setupTestEnv sets up test environment variables
func setupTestEnv(t *testing.T) {
	envVars := map[string]string{
		"ARGBIND_DEBUG":                "2",
		"ARGBIND_HELP_WIDTH":           "100",
		"ARGBIND_LOG_LEVEL":            "debug",
		"ARGBIND_AUDIT_ENABLED":        "true",
		"ARGBIND_AUDIT_OUTPUT_FILE":    "/tmp/argbind-test.jsonl",
		"ARGBIND_AUDIT_MIN_LEVEL":      "warn",
		"ARGBIND_AUDIT_BUFFER_SIZE":    "500",
		"ARGBIND_AUDIT_FLUSH_INTERVAL": "3s",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}
}

func verifyCoreConfig(t *testing.T, config *Config) {
	t.Helper()
	if config.Debug != 2 {
		t.Errorf("Expected Debug 2, got %d", config.Debug)
	}
	if config.HelpWidth != 100 {
		t.Errorf("Expected HelpWidth 100, got %d", config.HelpWidth)
	}
	if config.LogLevel != "debug" {
		t.Errorf("Expected LogLevel debug, got %q", config.LogLevel)
	}
	if config.Logger == nil || config.Output == nil {
		t.Error("Defaults not applied")
	}
}

func verifyAuditConfig(t *testing.T, config *Config) {
	t.Helper()
	if !config.Audit.Enabled {
		t.Error("Expected audit to be enabled")
	}
	if config.Audit.OutputFile != "/tmp/argbind-test.jsonl" {
		t.Errorf("Unexpected audit output file %q", config.Audit.OutputFile)
	}
	if config.Audit.MinLevel != AuditWarn {
		t.Errorf("Expected MinLevel WARN, got %v", config.Audit.MinLevel)
	}
	if config.Audit.BufferSize != 500 {
		t.Errorf("Expected BufferSize 500, got %d", config.Audit.BufferSize)
	}
	if config.Audit.FlushInterval != 3*time.Second {
		t.Errorf("Expected FlushInterval 3s, got %v", config.Audit.FlushInterval)
	}
}

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"ARGBIND_DEBUG", "ARGBIND_HELP_WIDTH", "ARGBIND_AUDIT_ENABLED"} {
		t.Setenv(key, "")
	}

	config, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("Failed to load config from env: %v", err)
	}
	if config.Debug != 0 || config.HelpWidth != 60 || config.Audit.Enabled {
		t.Errorf("Unexpected defaults: %+v", config)
	}
}

func TestLoadConfigFromEnvDebugBool(t *testing.T) {
	t.Setenv("ARGBIND_DEBUG", "yes")

	config, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("Failed to load config from env: %v", err)
	}
	if config.Debug != 1 {
		t.Errorf("Expected boolean debug to map to 1, got %d", config.Debug)
	}
}

func TestLoadConfigFromEnvInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"ARGBIND_HELP_WIDTH", "wide"},
		{"ARGBIND_HELP_WIDTH", "-5"},
		{"ARGBIND_AUDIT_MIN_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfigFromEnv()
			if err == nil {
				t.Fatal("Expected error")
			}
			if ErrorCode(err) != ErrCodeInvalidConfig {
				t.Errorf("Expected %s, got %s", ErrCodeInvalidConfig, ErrorCode(err))
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "1", "YES", " on ", "enabled"} {
		if !parseBool(v) {
			t.Errorf("parseBool(%q) should be true", v)
		}
	}
	for _, v := range []string{"false", "0", "no", "off", "", "maybe"} {
		if parseBool(v) {
			t.Errorf("parseBool(%q) should be false", v)
		}
	}
}
