// loader.go: Loading argument files with includes and variables
//
// A document may carry two directives:
//
//	$include: [base.yml, ...]   merged first, in order; the document wins
//	$vars: {NAME: value}        substitution source, shadowing the environment
//
// Any string value (or list element) of the form "$NAME" is replaced by the
// variable NAME when it is defined. Substitution happens once; the result
// is not expanded again.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/agilira/go-errors"
)

const (
	directiveInclude = "$include"
	directiveVars    = "$vars"
)

// LoadArgs reads the argument file at path with the default Binder.
func LoadArgs(path string) (Mapping, error) {
	return Default().LoadArgs(path)
}

// LoadArgsFrom reads an argument document from r with the default Binder.
func LoadArgsFrom(r io.Reader, format ConfigFormat) (Mapping, error) {
	return Default().LoadArgsFrom(r, format)
}

// LoadArgs reads the argument file at path, resolving includes relative to
// the working directory or, failing that, to the including file.
func (b *Binder) LoadArgs(path string) (Mapping, error) {
	doc, vars, err := b.loadFile(path, nil)
	if err != nil {
		return nil, err
	}
	out := b.finish(doc, vars)
	b.logger.Debug("arguments loaded", "path", path, "keys", len(out))
	b.audit.LogFile(EventArgsLoaded, path, len(out))
	return out, nil
}

// LoadArgsFrom reads an argument document from r. Includes are resolved
// relative to the working directory.
func (b *Binder) LoadArgsFrom(r io.Reader, format ConfigFormat) (Mapping, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeParseError, "cannot read arguments")
	}
	if format == FormatUnknown {
		format = FormatYAML
	}
	parsed, err := ParseConfig(data, format)
	if err != nil {
		return nil, err
	}
	doc, vars, err := b.expand(parsed, ".", map[string]bool{})
	if err != nil {
		return nil, err
	}
	return b.finish(doc, vars), nil
}

// loadFile parses path and merges its includes. visiting holds the
// absolute paths on the current include chain.
func (b *Binder) loadFile(path string, visiting map[string]bool) (Mapping, Mapping, error) {
	if visiting == nil {
		visiting = map[string]bool{}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if visiting[abs] {
		return nil, nil, errors.New(ErrCodeIncludeCycle,
			fmt.Sprintf("include cycle through %s", path))
	}

	data, err := os.ReadFile(path) // #nosec G304 -- reading user-named argument files is the purpose
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.New(ErrCodeFileNotFound,
				fmt.Sprintf("argument file not found: %s", path))
		}
		return nil, nil, errors.Wrap(err, ErrCodeParseError,
			fmt.Sprintf("cannot read %s", path))
	}

	format := DetectFormat(path)
	if format == FormatUnknown {
		format = FormatYAML
	}
	parsed, err := ParseConfig(data, format)
	if err != nil {
		return nil, nil, errors.Wrap(err, ErrCodeParseError,
			fmt.Sprintf("cannot parse %s", path))
	}

	visiting[abs] = true
	defer delete(visiting, abs)
	return b.expand(parsed, filepath.Dir(path), visiting)
}

// expand merges the includes of doc under it and collects variables. The
// document's own variables win over those of its includes.
func (b *Binder) expand(doc Mapping, dir string, visiting map[string]bool) (Mapping, Mapping, error) {
	includes, err := stringList(doc[directiveInclude])
	if err != nil {
		return nil, nil, err
	}
	delete(doc, directiveInclude)

	merged := make(Mapping)
	vars := make(Mapping)
	for _, inc := range includes {
		path, err := resolveInclude(inc, dir)
		if err != nil {
			return nil, nil, err
		}
		incDoc, incVars, err := b.loadFile(path, visiting)
		if err != nil {
			return nil, nil, err
		}
		for k, v := range incDoc {
			merged[k] = v
		}
		for k, v := range incVars {
			vars[k] = v
		}
	}

	if raw, ok := doc[directiveVars]; ok {
		own, ok := raw.(map[string]interface{})
		if !ok && raw != nil {
			return nil, nil, errors.New(ErrCodeParseError,
				fmt.Sprintf("%s must be a mapping, got %T", directiveVars, raw))
		}
		for k, v := range own {
			vars[k] = v
		}
		delete(doc, directiveVars)
	}

	for k, v := range doc {
		merged[k] = v
	}
	return merged, vars, nil
}

func resolveInclude(inc, dir string) (string, error) {
	if _, err := os.Stat(inc); err == nil {
		return inc, nil
	}
	if !filepath.IsAbs(inc) {
		candidate := filepath.Join(dir, inc)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.New(ErrCodeFileNotFound,
		fmt.Sprintf("included file not found: %s", inc))
}

func stringList(v interface{}) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{t}, nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New(ErrCodeParseError,
					fmt.Sprintf("%s entries must be paths, got %T", directiveInclude, item))
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.New(ErrCodeParseError,
			fmt.Sprintf("%s must be a list of paths, got %T", directiveInclude, v))
	}
}

// finish substitutes variables and fills in the debug default.
func (b *Binder) finish(doc, vars Mapping) Mapping {
	lookup := func(name string) (interface{}, bool) {
		if v, ok := vars[name]; ok {
			return v, true
		}
		if v, ok := os.LookupEnv(name); ok {
			return v, true
		}
		return nil, false
	}

	substitute := func(v interface{}) interface{} {
		s, ok := v.(string)
		if !ok || !strings.HasPrefix(s, "$") {
			return v
		}
		if resolved, ok := lookup(s[1:]); ok {
			return resolved
		}
		b.logger.Debug("unresolved variable kept verbatim", "reference", s)
		return v
	}

	for k, v := range doc {
		switch t := v.(type) {
		case string:
			doc[k] = substitute(t)
		case []interface{}:
			out := make([]interface{}, len(t))
			for i, item := range t {
				out[i] = substitute(item)
			}
			doc[k] = out
		}
	}

	if _, ok := doc[KeyDebug]; !ok {
		doc[KeyDebug] = b.debugLevel()
	}
	return doc
}
