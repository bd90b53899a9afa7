// Package cli provides the argbind command-line tool for inspecting and
// editing argument files.
//
// Commands:
// - show, keys: print the expanded contents of an argument file
// - scope: print the projection of a file for one scope pattern
// - validate: check key well-formedness after include/variable expansion
// - convert: translate between YAML, JSON and TOML
// - get, set, unset: edit single keys in place
// - audit stats: summarize an audit database
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"io"
	"os"

	"github.com/agilira/argbind"
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Manager wires the argbind commands into an Orpheus application.
type Manager struct {
	app    *orpheus.App
	binder *argbind.Binder
	out    io.Writer
}

// NewManager creates a CLI manager writing to stdout.
func NewManager() *Manager {
	app := orpheus.New("argbind").
		SetDescription("Inspect, validate and edit argbind argument files").
		SetVersion("1.0.0")

	manager := &Manager{
		app:    app,
		binder: argbind.New(argbind.Config{}),
		out:    os.Stdout,
	}

	manager.setupFileCommands()
	manager.setupEditCommands()
	manager.setupAuditCommands()

	return manager
}

// WithOutput redirects command output to w.
func (m *Manager) WithOutput(w io.Writer) *Manager {
	m.out = w
	return m
}

// WithBinder replaces the Binder used to load and save files, for example
// to enable its audit trail.
func (m *Manager) WithBinder(b *argbind.Binder) *Manager {
	m.binder = b
	return m
}

// Run executes the CLI application with the provided arguments.
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

func (m *Manager) setupFileCommands() {
	// show <file> [--prefix=] [--format=auto]
	showCmd := orpheus.NewCommand("show", "Print an argument file with includes and variables expanded").
		AddFlag("prefix", "p", "", "Key prefix filter").
		AddFlag("format", "f", "auto", "File format (auto|yaml|json|toml)").
		SetHandler(m.handleShow)
	m.app.AddCommand(showCmd)

	// keys <file> [--prefix=]
	keysCmd := orpheus.NewCommand("keys", "List the keys of an argument file").
		AddFlag("prefix", "p", "", "Key prefix filter").
		AddFlag("format", "f", "auto", "File format (auto|yaml|json|toml)").
		SetHandler(m.handleKeys)
	m.app.AddCommand(keysCmd)

	// scope <file> <pattern>
	scopeCmd := orpheus.NewCommand("scope", "Print the mapping seen inside a scope pattern").
		AddFlag("format", "f", "auto", "File format (auto|yaml|json|toml)").
		SetHandler(m.handleScope)
	m.app.AddCommand(scopeCmd)

	// validate <file>
	validateCmd := orpheus.NewCommand("validate", "Validate the keys of an argument file").
		AddFlag("format", "f", "auto", "File format (auto|yaml|json|toml)").
		SetHandler(m.handleValidate)
	m.app.AddCommand(validateCmd)

	// convert <input> <output> [--expand]
	convertCmd := orpheus.NewCommand("convert", "Convert an argument file between formats").
		AddFlag("from", "", "auto", "Input format (auto|yaml|json|toml)").
		AddBoolFlag("expand", "e", false, "Resolve $include and $vars before converting").
		SetHandler(m.handleConvert)
	m.app.AddCommand(convertCmd)
}

func (m *Manager) setupEditCommands() {
	// get <file> <key>
	getCmd := orpheus.NewCommand("get", "Get the raw value of a key").
		SetHandler(m.handleGet)
	m.app.AddCommand(getCmd)

	// set <file> <key> <value>
	setCmd := orpheus.NewCommand("set", "Set a key, guessing the value's type").
		AddBoolFlag("string", "s", false, "Store the value as a string without guessing").
		SetHandler(m.handleSet)
	m.app.AddCommand(setCmd)

	// unset <file> <key>
	unsetCmd := orpheus.NewCommand("unset", "Remove a key").
		SetHandler(m.handleUnset)
	m.app.AddCommand(unsetCmd)
}

func (m *Manager) setupAuditCommands() {
	auditCmd := orpheus.NewCommand("audit", "Audit trail inspection")

	// audit stats <database>
	statsCmd := auditCmd.Subcommand("stats", "Summarize an audit database or JSONL file", m.handleAuditStats)
	statsCmd.AddBoolFlag("verbose", "v", false, "Show per-event counts")

	m.app.AddCommand(auditCmd)
}
