// config.go: Binder configuration for ArgBind
//
// Copyright (c) 2025 AGILira
// Series: AGILira System Libraries
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Config configures a Binder. The zero value is usable; WithDefaults fills
// in everything left unset.
type Config struct {
	// Debug prints every injected argument before invocation when nonzero.
	Debug int

	// HelpWidth is the wrap width for generated help descriptions.
	HelpWidth int

	// ProgramName is shown in the usage line. Defaults to the executable name.
	ProgramName string

	// Output receives debug call dumps and usage text. Defaults to stdout.
	Output io.Writer

	// Logger receives warnings and load/save diagnostics.
	Logger *log.Logger

	// LogLevel is applied to the default logger when Logger is nil.
	LogLevel string

	// Audit configures the optional audit trail of resolutions.
	Audit AuditConfig
}

// WithDefaults applies sensible defaults to the configuration
func (c *Config) WithDefaults() *Config {
	config := *c

	if config.HelpWidth <= 0 {
		config.HelpWidth = 60
	}

	if config.ProgramName == "" {
		config.ProgramName = filepath.Base(os.Args[0])
	}

	if config.Output == nil {
		config.Output = os.Stdout
	}

	if config.Logger == nil {
		config.Logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "argbind",
		})
		if config.LogLevel != "" {
			if level, err := log.ParseLevel(config.LogLevel); err == nil {
				config.Logger.SetLevel(level)
			}
		}
	}

	if config.Audit.Enabled {
		if config.Audit.BufferSize <= 0 {
			config.Audit.BufferSize = 100
		}
	}

	return &config
}
