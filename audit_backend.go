// audit_backend.go: Storage backends for the audit trail
//
// Two backends share one contract: SQLite (default, one shared database
// queryable across runs) and JSONL (one event per line, selected by a
// .jsonl OutputFile).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// auditBackend is the storage contract of the audit logger.
type auditBackend interface {
	// Write persists a batch of events. Implementations must be safe for
	// concurrent use.
	Write(events []AuditEvent) error

	// Flush commits pending writes to storage.
	Flush() error

	// Close releases all resources. The backend must not be used afterwards.
	Close() error

	// GetStats summarizes the stored events.
	GetStats() (*AuditDatabaseStats, error)
}

// createAuditBackend selects JSONL for a .jsonl OutputFile and SQLite
// otherwise, falling back to JSONL when SQLite cannot be opened.
func createAuditBackend(config AuditConfig) (auditBackend, error) {
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".jsonl" {
		return newJSONLBackend(config)
	}

	backend, err := newSQLiteBackend(config)
	if err == nil {
		return backend, nil
	}

	jsonlBackend, jsonlErr := newJSONLBackend(config)
	if jsonlErr != nil {
		return nil, errors.Wrap(err, ErrCodeAuditBackend, fmt.Sprintf("no audit backend available (JSONL: %v)", jsonlErr))
	}

	return jsonlBackend, nil
}

// sharedAuditPath is the database used when no .db OutputFile is given.
func sharedAuditPath() string {
	return filepath.Join(os.TempDir(), "argbind", "audit.db")
}

// AuditDatabaseStats summarizes an audit store.
type AuditDatabaseStats struct {
	TotalEvents     int64            `json:"total_events"`
	EventsByLevel   map[string]int64 `json:"events_by_level"`
	EventsByEvent   map[string]int64 `json:"events_by_event"`
	Sessions        int64            `json:"sessions"`
	DatabaseSize    int64            `json:"database_size_bytes"`
	OldestTimestamp time.Time        `json:"oldest_timestamp,omitempty"`
	NewestTimestamp time.Time        `json:"newest_timestamp,omitempty"`
}

type sqliteAuditBackend struct {
	db         *sql.DB
	dbPath     string
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	closed     bool
}

func newSQLiteBackend(config AuditConfig) (*sqliteAuditBackend, error) {
	dbPath := sharedAuditPath()
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".db" {
		dbPath = config.OutputFile
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to create audit database directory")
	}

	// WAL keeps readers (argbind audit queries) from blocking writers.
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to open audit database")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to ping audit database")
	}

	backend := &sqliteAuditBackend{db: db, dbPath: dbPath}
	if err := backend.initializeSchema(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to initialize audit database schema")
	}

	stmt, err := db.Prepare(`
	INSERT INTO audit_events (
		timestamp, level, event, session_id, callable, key, value,
		process_id, process_name, context, checksum
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to prepare insert statement")
	}
	backend.insertStmt = stmt

	return backend, nil
}

func (s *sqliteAuditBackend) initializeSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			level TEXT NOT NULL,
			event TEXT NOT NULL,
			session_id TEXT NOT NULL,
			callable TEXT,
			key TEXT,
			value TEXT,
			process_id INTEGER NOT NULL,
			process_name TEXT NOT NULL,
			context TEXT,
			checksum TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		"CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_events(session_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_event_callable ON audit_events(event, callable)",
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteAuditBackend) Write(events []AuditEvent) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New(ErrCodeAuditBackend, "cannot write to closed SQLite audit backend")
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, ErrCodeAuditBackend, "failed to begin audit transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txStmt := tx.Stmt(s.insertStmt)
	defer txStmt.Close()

	for _, event := range events {
		if err = insertEvent(txStmt, event); err != nil {
			return errors.Wrap(err, ErrCodeAuditBackend, "failed to insert audit event")
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, ErrCodeAuditBackend, "failed to commit audit transaction")
	}
	return nil
}

func insertEvent(stmt *sql.Stmt, event AuditEvent) error {
	valueJSON := ""
	if event.Value != nil {
		data, err := json.Marshal(event.Value)
		if err != nil {
			return errors.Wrap(err, ErrCodeAuditBackend, "failed to serialize value")
		}
		valueJSON = string(data)
	}

	contextJSON := ""
	if event.Context != nil {
		data, err := json.Marshal(event.Context)
		if err != nil {
			return errors.Wrap(err, ErrCodeAuditBackend, "failed to serialize context")
		}
		contextJSON = string(data)
	}

	_, err := stmt.Exec(
		event.Timestamp.Format(time.RFC3339Nano),
		event.Level.String(),
		event.Event,
		event.SessionID,
		event.Callable,
		event.Key,
		valueJSON,
		event.ProcessID,
		event.ProcessName,
		contextJSON,
		event.Checksum,
	)
	return err
}

func (s *sqliteAuditBackend) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.Wrap(err, ErrCodeAuditBackend, "failed to flush SQLite audit backend")
	}
	return nil
}

func (s *sqliteAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.New(ErrCodeAuditBackend, "SQLite audit backend is closed")
	}

	stats := &AuditDatabaseStats{
		EventsByLevel: make(map[string]int64),
		EventsByEvent: make(map[string]int64),
	}

	if err := s.db.QueryRow("SELECT COUNT(*), COUNT(DISTINCT session_id) FROM audit_events").
		Scan(&stats.TotalEvents, &stats.Sessions); err != nil {
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to count audit events")
	}

	if err := countBy(s.db, "level", stats.EventsByLevel); err != nil {
		return nil, err
	}
	if err := countBy(s.db, "event", stats.EventsByEvent); err != nil {
		return nil, err
	}

	var oldest, newest sql.NullString
	if err := s.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM audit_events").
		Scan(&oldest, &newest); err != nil {
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to read audit time range")
	}
	if oldest.Valid {
		stats.OldestTimestamp, _ = time.Parse(time.RFC3339Nano, oldest.String)
	}
	if newest.Valid {
		stats.NewestTimestamp, _ = time.Parse(time.RFC3339Nano, newest.String)
	}

	if info, err := os.Stat(s.dbPath); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

// countBy fills into with event counts grouped by column. column is always
// a package constant, never user input.
func countBy(db *sql.DB, column string, into map[string]int64) error {
	rows, err := db.Query("SELECT " + column + ", COUNT(*) FROM audit_events GROUP BY " + column) // #nosec G202
	if err != nil {
		return errors.Wrap(err, ErrCodeAuditBackend, fmt.Sprintf("failed to group audit events by %s", column))
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return err
		}
		into[name] = count
	}
	return rows.Err()
}

func (s *sqliteAuditBackend) Close() error {
	flushErr := s.Flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if flushErr != nil {
		errs = append(errs, flushErr)
	}
	if s.insertStmt != nil {
		if err := s.insertStmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.New(ErrCodeAuditBackend, fmt.Sprintf("closing SQLite audit backend: %v", errs))
	}
	return nil
}

type jsonlAuditBackend struct {
	file       *os.File
	sourceFile string
	mu         sync.Mutex
	closed     bool
}

func newJSONLBackend(config AuditConfig) (*jsonlAuditBackend, error) {
	if config.OutputFile == "" {
		return nil, errors.New(ErrCodeInvalidAuditConfig, "JSONL backend requires OutputFile to be specified")
	}

	if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0750); err != nil {
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to create JSONL audit log directory")
	}

	file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to open JSONL audit log file")
	}

	return &jsonlAuditBackend{file: file, sourceFile: config.OutputFile}, nil
}

func (j *jsonlAuditBackend) Write(events []AuditEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return errors.New(ErrCodeAuditBackend, "cannot write to closed JSONL audit backend")
	}

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return errors.Wrap(err, ErrCodeAuditBackend, "failed to serialize audit event")
		}
		data = append(data, '\n')
		if _, err := j.file.Write(data); err != nil {
			return errors.Wrap(err, ErrCodeAuditBackend, "failed to write audit event to JSONL")
		}
	}
	return nil
}

func (j *jsonlAuditBackend) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	if err := j.file.Sync(); err != nil {
		return errors.Wrap(err, ErrCodeAuditBackend, "failed to sync JSONL audit file")
	}
	return nil
}

// GetStats reports the file size only; counting would mean reparsing the
// whole file.
func (j *jsonlAuditBackend) GetStats() (*AuditDatabaseStats, error) {
	stats := &AuditDatabaseStats{
		EventsByLevel: make(map[string]int64),
		EventsByEvent: make(map[string]int64),
	}
	if info, err := os.Stat(j.sourceFile); err == nil {
		stats.DatabaseSize = info.Size()
	}
	return stats, nil
}

func (j *jsonlAuditBackend) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}
