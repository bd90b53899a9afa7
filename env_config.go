// env_config.go: Environment variable configuration for ArgBind
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/go-errors"
)

// EnvConfig represents configuration loaded from environment variables
type EnvConfig struct {
	Debug     int    `env:"ARGBIND_DEBUG"`
	HelpWidth int    `env:"ARGBIND_HELP_WIDTH"`
	LogLevel  string `env:"ARGBIND_LOG_LEVEL"`

	AuditEnabled       bool          `env:"ARGBIND_AUDIT_ENABLED"`
	AuditOutputFile    string        `env:"ARGBIND_AUDIT_OUTPUT_FILE"`
	AuditMinLevel      string        `env:"ARGBIND_AUDIT_MIN_LEVEL"`
	AuditBufferSize    int           `env:"ARGBIND_AUDIT_BUFFER_SIZE"`
	AuditFlushInterval time.Duration `env:"ARGBIND_AUDIT_FLUSH_INTERVAL"`
}

// LoadConfigFromEnv builds a Config from ARGBIND_* environment variables,
// with defaults applied to everything left unset.
func LoadConfigFromEnv() (*Config, error) {
	envConfig := &EnvConfig{}

	if err := loadCoreConfig(envConfig); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to load environment configuration")
	}
	if err := loadAuditConfig(envConfig); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to load environment configuration")
	}

	config := &Config{}
	if err := convertEnvToConfig(envConfig, config); err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to convert environment configuration")
	}

	return config.WithDefaults(), nil
}

func loadCoreConfig(envConfig *EnvConfig) error {
	if debugStr := os.Getenv("ARGBIND_DEBUG"); debugStr != "" {
		if level, err := strconv.Atoi(debugStr); err == nil {
			envConfig.Debug = level
		} else if parseBool(debugStr) {
			envConfig.Debug = 1
		}
	}

	if widthStr := os.Getenv("ARGBIND_HELP_WIDTH"); widthStr != "" {
		width, err := strconv.Atoi(widthStr)
		if err != nil || width <= 0 {
			return errors.New(ErrCodeInvalidConfig, "invalid ARGBIND_HELP_WIDTH value")
		}
		envConfig.HelpWidth = width
	}

	envConfig.LogLevel = os.Getenv("ARGBIND_LOG_LEVEL")
	return nil
}

func loadAuditConfig(envConfig *EnvConfig) error {
	if auditStr := os.Getenv("ARGBIND_AUDIT_ENABLED"); auditStr != "" {
		envConfig.AuditEnabled = parseBool(auditStr)
	}

	envConfig.AuditOutputFile = os.Getenv("ARGBIND_AUDIT_OUTPUT_FILE")
	envConfig.AuditMinLevel = os.Getenv("ARGBIND_AUDIT_MIN_LEVEL")

	if bufferStr := os.Getenv("ARGBIND_AUDIT_BUFFER_SIZE"); bufferStr != "" {
		if buffer, err := strconv.Atoi(bufferStr); err == nil && buffer > 0 {
			envConfig.AuditBufferSize = buffer
		}
	}

	if flushStr := os.Getenv("ARGBIND_AUDIT_FLUSH_INTERVAL"); flushStr != "" {
		if duration, err := time.ParseDuration(flushStr); err == nil {
			envConfig.AuditFlushInterval = duration
		}
	}
	return nil
}

func convertEnvToConfig(envConfig *EnvConfig, config *Config) error {
	config.Debug = envConfig.Debug
	config.HelpWidth = envConfig.HelpWidth
	config.LogLevel = envConfig.LogLevel

	config.Audit.Enabled = envConfig.AuditEnabled
	config.Audit.OutputFile = envConfig.AuditOutputFile
	config.Audit.BufferSize = envConfig.AuditBufferSize
	config.Audit.FlushInterval = envConfig.AuditFlushInterval

	if envConfig.AuditMinLevel != "" {
		level, err := ParseAuditLevel(envConfig.AuditMinLevel)
		if err != nil {
			return err
		}
		config.Audit.MinLevel = level
	}
	return nil
}

// parseBool parses boolean values from environment variables
// Supports: true/false, 1/0, yes/no, on/off, enabled/disabled
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on", "enabled":
		return true
	default:
		return false
	}
}
