// audit.go: Audit trail of argument resolution
//
// Records scope activations, injected arguments, and configuration loads
// and saves, so that a run can be reconstructed after the fact: which value
// reached which parameter, from which scope.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/google/uuid"
)

// AuditLevel represents the severity of audit events
type AuditLevel int

const (
	AuditInfo AuditLevel = iota
	AuditWarn
	AuditCritical
)

func (al AuditLevel) String() string {
	switch al {
	case AuditInfo:
		return "INFO"
	case AuditWarn:
		return "WARN"
	case AuditCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseAuditLevel converts a level name (case-insensitive) into an AuditLevel.
func ParseAuditLevel(s string) (AuditLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO", "":
		return AuditInfo, nil
	case "WARN", "WARNING":
		return AuditWarn, nil
	case "CRITICAL":
		return AuditCritical, nil
	default:
		return AuditInfo, errors.New(ErrCodeInvalidAuditConfig,
			fmt.Sprintf("unknown audit level %q", s))
	}
}

// Audit event names
const (
	EventScopeEnter  = "scope_enter"
	EventScopeExit   = "scope_exit"
	EventArgInjected = "arg_injected"
	EventArgsLoaded  = "args_loaded"
	EventArgsSaved   = "args_saved"
	EventBindWarning = "bind_warning"
)

// AuditEvent represents a single auditable event
type AuditEvent struct {
	Timestamp   time.Time              `json:"timestamp"`
	Level       AuditLevel             `json:"level"`
	Event       string                 `json:"event"`
	SessionID   string                 `json:"session_id"`
	Callable    string                 `json:"callable,omitempty"`
	Key         string                 `json:"key,omitempty"`
	Value       interface{}            `json:"value,omitempty"`
	ProcessID   int                    `json:"process_id"`
	ProcessName string                 `json:"process_name"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Checksum    string                 `json:"checksum"`
}

// AuditConfig configures the audit system
type AuditConfig struct {
	Enabled       bool          `json:"enabled"`
	OutputFile    string        `json:"output_file"`
	MinLevel      AuditLevel    `json:"min_level"`
	BufferSize    int           `json:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval"`
}

// DefaultAuditConfig returns an enabled audit configuration writing to the
// shared SQLite database.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       true,
		MinLevel:      AuditInfo,
		BufferSize:    100,
		FlushInterval: 5 * time.Second,
	}
}

// AuditLogger buffers audit events and writes them in batches to a backend
// (SQLite by default, JSONL when OutputFile ends in .jsonl).
//
// A nil *AuditLogger is valid and discards every event.
type AuditLogger struct {
	config      AuditConfig
	backend     auditBackend
	buffer      []AuditEvent
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
	sessionID   string
	processID   int
	processName string
}

// NewAuditLogger creates an audit logger and starts its background flusher
// when FlushInterval is positive.
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	if config.BufferSize <= 0 {
		config.BufferSize = 100
	}

	backend, err := createAuditBackend(config)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidAuditConfig, "failed to initialize audit backend")
	}

	logger := &AuditLogger{
		config:      config,
		backend:     backend,
		buffer:      make([]AuditEvent, 0, config.BufferSize),
		stopCh:      make(chan struct{}),
		sessionID:   uuid.NewString(),
		processID:   os.Getpid(),
		processName: filepath.Base(os.Args[0]),
	}

	if config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}

	return logger, nil
}

// SessionID identifies the events written by this logger instance.
func (al *AuditLogger) SessionID() string {
	if al == nil {
		return ""
	}
	return al.sessionID
}

// Log records an audit event
func (al *AuditLogger) Log(level AuditLevel, event, callable, key string, value interface{}, context map[string]interface{}) {
	if al == nil || al.backend == nil || !al.config.Enabled || level < al.config.MinLevel {
		return
	}

	auditEvent := AuditEvent{
		Timestamp:   timecache.CachedTime(),
		Level:       level,
		Event:       event,
		SessionID:   al.sessionID,
		Callable:    callable,
		Key:         key,
		Value:       value,
		ProcessID:   al.processID,
		ProcessName: al.processName,
		Context:     context,
	}
	auditEvent.Checksum = checksum(auditEvent)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, auditEvent)
	if len(al.buffer) >= al.config.BufferSize {
		_ = al.flushBufferUnsafe() // a failing backend must not break resolution
	}
	al.bufferMu.Unlock()
}

// LogInjection records an argument delivered from the active mapping.
func (al *AuditLogger) LogInjection(callable, key string, value interface{}) {
	al.Log(AuditInfo, EventArgInjected, callable, key, value, nil)
}

// LogScope records entering or leaving a scope.
func (al *AuditLogger) LogScope(event, pattern string, keys int) {
	al.Log(AuditInfo, event, "", "", nil, map[string]interface{}{
		"pattern": pattern,
		"keys":    keys,
	})
}

// LogFile records a load or save of a configuration file.
func (al *AuditLogger) LogFile(event, path string, keys int) {
	al.Log(AuditCritical, event, "", "", nil, map[string]interface{}{
		"path": path,
		"keys": keys,
	})
}

// Flush immediately writes all buffered events
func (al *AuditLogger) Flush() error {
	if al == nil {
		return nil
	}
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	return al.flushBufferUnsafe()
}

// Stats returns statistics from the backend.
func (al *AuditLogger) Stats() (*AuditDatabaseStats, error) {
	if al == nil {
		return nil, errors.New(ErrCodeInvalidAuditConfig, "audit trail disabled")
	}
	if err := al.Flush(); err != nil {
		return nil, err
	}
	return al.backend.GetStats()
}

// Close stops the flusher, writes pending events and releases the backend.
// It is safe to call more than once.
func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}
	var closeErr error
	al.closeOnce.Do(func() {
		close(al.stopCh)
		if al.flushTicker != nil {
			al.flushTicker.Stop()
		}

		if err := al.Flush(); err != nil {
			closeErr = errors.Wrap(err, ErrCodeAuditBackend, "failed to flush audit logger during close")
			return
		}

		if err := al.backend.Close(); err != nil {
			closeErr = errors.Wrap(err, ErrCodeAuditBackend, "failed to close audit backend")
		}
	})
	return closeErr
}

func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			_ = al.Flush()
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes buffer to backend storage (caller must hold bufferMu).
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 {
		return nil
	}

	if err := al.backend.Write(al.buffer); err != nil {
		return errors.Wrap(err, ErrCodeAuditBackend, "failed to write audit events to backend")
	}

	al.buffer = al.buffer[:0]
	return nil
}

// checksum creates a tamper-detection checksum using SHA-256
func checksum(event AuditEvent) string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%v",
		event.Timestamp.Format(time.RFC3339Nano),
		event.SessionID, event.Event, event.Callable, event.Key, event.Value)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
