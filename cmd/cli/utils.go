// Utility functions for the argbind CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/agilira/argbind"
	"github.com/agilira/go-errors"
)

// detectFormat returns the explicit format when given, otherwise the one
// implied by the file extension.
func detectFormat(filePath, explicitFormat string) argbind.ConfigFormat {
	if explicitFormat != "" && explicitFormat != "auto" {
		return argbind.ParseFormat(explicitFormat)
	}
	return argbind.DetectFormat(filePath)
}

// loadExpanded loads filePath with includes and variables resolved. An
// explicit format forces the document format of the top-level file.
func (m *Manager) loadExpanded(filePath, explicitFormat string) (argbind.Mapping, error) {
	if explicitFormat == "" || explicitFormat == "auto" {
		return m.binder.LoadArgs(filePath)
	}
	format := detectFormat(filePath, explicitFormat)
	if format == argbind.FormatUnknown {
		return nil, errors.New(argbind.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported format %q", explicitFormat))
	}
	f, err := os.Open(filePath) // #nosec G304 -- CLI operates on user-named files
	if err != nil {
		return nil, errors.Wrap(err, argbind.ErrCodeFileNotFound,
			fmt.Sprintf("cannot open %s", filePath))
	}
	defer f.Close()
	return m.binder.LoadArgsFrom(f, format)
}

// loadRaw parses filePath without expanding directives.
func loadRaw(filePath string, format argbind.ConfigFormat) (argbind.Mapping, error) {
	data, err := os.ReadFile(filePath) // #nosec G304 -- CLI operates on user-named files
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(argbind.ErrCodeFileNotFound,
				fmt.Sprintf("argument file not found: %s", filePath))
		}
		return nil, errors.Wrap(err, argbind.ErrCodeParseError,
			fmt.Sprintf("cannot read %s", filePath))
	}
	if format == argbind.FormatUnknown {
		format = argbind.FormatYAML
	}
	return argbind.ParseConfig(data, format)
}

// filterKeys returns the sorted keys of m starting with prefix.
func filterKeys(m argbind.Mapping, prefix string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// requireArgs fails with a usage error when any of the named positional
// arguments is empty.
func requireArgs(names []string, values ...string) error {
	for i, v := range values {
		if v == "" {
			return errors.New(argbind.ErrCodeUsage,
				fmt.Sprintf("missing required argument <%s>", names[i]))
		}
	}
	return nil
}

// formatEntry renders one key for display.
func formatEntry(key string, value interface{}) string {
	if value == nil {
		return key + " ="
	}
	return fmt.Sprintf("%s = %s", key, argbind.FormatValue(value))
}
