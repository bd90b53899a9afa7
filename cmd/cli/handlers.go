// Command handlers for the argbind CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/agilira/argbind"
	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/dustin/go-humanize"
)

// handleShow prints every key of the expanded file, sorted.
func (m *Manager) handleShow(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	if err := requireArgs([]string{"file"}, filePath); err != nil {
		return err
	}

	args, err := m.loadExpanded(filePath, ctx.GetFlagString("format"))
	if err != nil {
		return err
	}

	for _, key := range filterKeys(args, ctx.GetFlagString("prefix")) {
		fmt.Fprintln(m.out, formatEntry(key, args[key]))
	}
	return nil
}

// handleKeys prints the keys of the expanded file.
func (m *Manager) handleKeys(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	if err := requireArgs([]string{"file"}, filePath); err != nil {
		return err
	}

	args, err := m.loadExpanded(filePath, ctx.GetFlagString("format"))
	if err != nil {
		return err
	}

	for _, key := range filterKeys(args, ctx.GetFlagString("prefix")) {
		fmt.Fprintln(m.out, key)
	}
	return nil
}

// handleScope prints the projection of the file for one pattern.
func (m *Manager) handleScope(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	pattern := ctx.GetArg(1)
	if err := requireArgs([]string{"file", "pattern"}, filePath, pattern); err != nil {
		return err
	}

	args, err := m.loadExpanded(filePath, ctx.GetFlagString("format"))
	if err != nil {
		return err
	}

	scope, err := argbind.NewScope(args, pattern)
	if err != nil {
		return err
	}
	projected := scope.Mapping()
	for _, key := range scope.Keys() {
		fmt.Fprintln(m.out, formatEntry(key, projected[key]))
	}
	return nil
}

// handleValidate checks every key of the expanded file.
func (m *Manager) handleValidate(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	if err := requireArgs([]string{"file"}, filePath); err != nil {
		return err
	}

	args, err := m.loadExpanded(filePath, ctx.GetFlagString("format"))
	if err != nil {
		return err
	}

	var invalid []string
	for _, key := range filterKeys(args, "") {
		if err := argbind.ValidateKey(key); err != nil {
			invalid = append(invalid, err.Error())
		}
	}
	if len(invalid) > 0 {
		for _, msg := range invalid {
			fmt.Fprintln(m.out, msg)
		}
		return errors.New(argbind.ErrCodeMalformedKey,
			fmt.Sprintf("%s: %d malformed keys", filePath, len(invalid)))
	}

	fmt.Fprintf(m.out, "%s: %d keys OK\n", filePath, len(args))
	return nil
}

// handleConvert rewrites a file in the format implied by the output path.
func (m *Manager) handleConvert(ctx *orpheus.Context) error {
	inputPath := ctx.GetArg(0)
	outputPath := ctx.GetArg(1)
	if err := requireArgs([]string{"input", "output"}, inputPath, outputPath); err != nil {
		return err
	}

	var (
		args argbind.Mapping
		err  error
	)
	if ctx.GetFlagBool("expand") {
		args, err = m.loadExpanded(inputPath, ctx.GetFlagString("from"))
	} else {
		args, err = loadRaw(inputPath, detectFormat(inputPath, ctx.GetFlagString("from")))
	}
	if err != nil {
		return err
	}

	if err := m.binder.DumpArgs(args, outputPath); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Converted %s -> %s (%d keys)\n", inputPath, outputPath, len(args))
	return nil
}

// handleGet prints the raw value of a key, without expansion.
func (m *Manager) handleGet(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	key := ctx.GetArg(1)
	if err := requireArgs([]string{"file", "key"}, filePath, key); err != nil {
		return err
	}

	writer, err := m.binder.NewArgsWriter(filePath)
	if err != nil {
		return err
	}
	value, ok := writer.Get(key)
	if !ok {
		return errors.New(argbind.ErrCodeUnknownArgument,
			fmt.Sprintf("key '%s' not found", key))
	}
	fmt.Fprintln(m.out, argbind.FormatValue(value))
	return nil
}

// handleSet stores a key and writes the file atomically.
func (m *Manager) handleSet(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	key := ctx.GetArg(1)
	raw := ctx.GetArg(2)
	if err := requireArgs([]string{"file", "key", "value"}, filePath, key, raw); err != nil {
		return err
	}

	writer, err := m.binder.NewArgsWriter(filePath)
	if err != nil {
		return err
	}

	var value interface{} = raw
	if !ctx.GetFlagBool("string") {
		value = argbind.GuessLiteral(raw)
	}
	if err := writer.Set(key, value); err != nil {
		return err
	}
	if err := writer.Write(); err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Set %s = %v in %s\n", key, value, filePath)
	return nil
}

// handleUnset removes a key and writes the file atomically.
func (m *Manager) handleUnset(ctx *orpheus.Context) error {
	filePath := ctx.GetArg(0)
	key := ctx.GetArg(1)
	if err := requireArgs([]string{"file", "key"}, filePath, key); err != nil {
		return err
	}

	writer, err := m.binder.NewArgsWriter(filePath)
	if err != nil {
		return err
	}
	if !writer.Delete(key) {
		return errors.New(argbind.ErrCodeUnknownArgument,
			fmt.Sprintf("key '%s' not found", key))
	}
	if err := writer.Write(); err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Removed %s from %s\n", key, filePath)
	return nil
}

// handleAuditStats summarizes an audit store.
func (m *Manager) handleAuditStats(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	if err := requireArgs([]string{"database"}, path); err != nil {
		return err
	}
	if ext := filepath.Ext(path); ext != ".db" && ext != ".jsonl" {
		return errors.New(argbind.ErrCodeUnsupportedFormat,
			fmt.Sprintf("audit store must be a .db or .jsonl file: %s", path))
	}
	if _, err := os.Stat(path); err != nil {
		return errors.New(argbind.ErrCodeFileNotFound,
			fmt.Sprintf("audit store not found: %s", path))
	}

	auditor, err := argbind.NewAuditLogger(argbind.AuditConfig{
		Enabled:    true,
		OutputFile: path,
	})
	if err != nil {
		return err
	}
	defer auditor.Close()

	stats, err := auditor.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintf(m.out, "Store:    %s (%s)\n", filepath.Base(path), humanize.Bytes(uint64(stats.DatabaseSize)))
	if filepath.Ext(path) == ".jsonl" {
		return nil
	}
	fmt.Fprintf(m.out, "Events:   %s\n", humanize.Comma(stats.TotalEvents))
	fmt.Fprintf(m.out, "Sessions: %s\n", humanize.Comma(stats.Sessions))
	if !stats.NewestTimestamp.IsZero() {
		fmt.Fprintf(m.out, "Latest:   %s\n", humanize.Time(stats.NewestTimestamp))
	}

	if ctx.GetFlagBool("verbose") {
		events := make([]string, 0, len(stats.EventsByEvent))
		for name := range stats.EventsByEvent {
			events = append(events, name)
		}
		sort.Strings(events)
		for _, name := range events {
			fmt.Fprintf(m.out, "  %-14s %s\n", name, humanize.Comma(stats.EventsByEvent[name]))
		}
	}
	return nil
}
