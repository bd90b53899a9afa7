// binder.go: The Binder ties registry, scope stack, usage tracking and audit
// together. Package-level functions operate on a process-wide default
// Binder, mirroring the way the log package exposes a standard logger.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// Binder owns the registry of bound callables and the ambient scope stack.
//
// The ambient scope is process-wide state with strict stack discipline. It
// is guarded against memory corruption but interleaving scopes from several
// goroutines is unsupported: use ContextWithScope for concurrent callers.
type Binder struct {
	config   Config
	logger   *log.Logger
	registry *Registry
	usage    *UsageTracker
	audit    *AuditLogger

	mu     sync.Mutex
	active *Scope
	stack  []*ScopeHandle
}

// New creates a Binder. A failing audit backend never prevents creation:
// the error is logged and auditing stays disabled.
func New(config Config) *Binder {
	cfg := config.WithDefaults()

	b := &Binder{
		config:   *cfg,
		logger:   cfg.Logger,
		registry: NewRegistry(),
		usage:    NewUsageTracker(),
		active:   emptyScope(),
	}

	if cfg.Audit.Enabled {
		auditor, err := NewAuditLogger(cfg.Audit)
		if err != nil {
			b.logger.Warn("audit trail disabled", "error", err)
		} else {
			b.audit = auditor
		}
	}

	return b
}

var std atomic.Pointer[Binder]

func init() {
	config, err := LoadConfigFromEnv()
	if err != nil {
		config = &Config{}
	}
	std.Store(New(*config))
}

// Default returns the process-wide Binder used by package-level functions.
func Default() *Binder {
	return std.Load()
}

// SetDefault replaces the process-wide Binder and returns the previous one.
func SetDefault(b *Binder) *Binder {
	return std.Swap(b)
}

// Registry returns the callable registry of b.
func (b *Binder) Registry() *Registry {
	return b.registry
}

// Logger returns the logger used for warnings and diagnostics.
func (b *Binder) Logger() *log.Logger {
	return b.logger
}

// Usage returns the usage tracker of b.
func (b *Binder) Usage() *UsageTracker {
	return b.usage
}

// UsedArgs returns the keys whose values were delivered to a call so far,
// scope-prefixed when a pattern was active.
func (b *Binder) UsedArgs() Mapping {
	return b.usage.Used()
}

// SetDebug changes the debug level of b.
func (b *Binder) SetDebug(level int) {
	b.mu.Lock()
	b.config.Debug = level
	b.mu.Unlock()
}

func (b *Binder) debugLevel() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config.Debug
}

// Close flushes and releases the audit trail, if any.
func (b *Binder) Close() error {
	if b.audit == nil {
		return nil
	}
	return b.audit.Close()
}

// UsedArgs returns the used keys of the default Binder.
func UsedArgs() Mapping {
	return Default().UsedArgs()
}

// truthy interprets the loose debug values that end up in mappings: ints
// from the command line, bools from YAML, strings from the environment.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		if s == "" || s == "false" || s == "no" || s == "off" {
			return false
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n != 0
		}
		return true
	default:
		return fmt.Sprint(t) != ""
	}
}
