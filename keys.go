// keys.go: Configuration key naming
//
// A configuration key is the flattened form of {optional scope} x
// {callable.param}: "pattern/canonical.param" when prefixed, or
// "pattern/param" when the callable is bound without prefix.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"fmt"
	"strings"

	"github.com/agilira/go-errors"
)

const (
	scopeSeparator = "/"
	paramSeparator = "."
)

// Meta keys consumed by the flag surface itself.
const (
	KeySave  = "args.save"
	KeyLoad  = "args.load"
	KeyDebug = "args.debug"
)

// Mapping is a flat configuration: hierarchy lives in key names only.
type Mapping map[string]any

// Clone returns a shallow copy of m.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SplitKey separates the scope pattern from the rest of key. A key without
// a pattern yields an empty pattern.
func SplitKey(key string) (pattern, rest string, err error) {
	switch strings.Count(key, scopeSeparator) {
	case 0:
		return "", key, nil
	case 1:
		idx := strings.Index(key, scopeSeparator)
		pattern, rest = key[:idx], key[idx+1:]
		if pattern == "" || rest == "" {
			return "", "", malformedKey(key, "empty segment around scope separator")
		}
		return pattern, rest, nil
	default:
		return "", "", malformedKey(key, "more than one scope separator")
	}
}

// JoinKey prefixes key with pattern. An empty pattern returns key unchanged.
func JoinKey(pattern, key string) string {
	if pattern == "" {
		return key
	}
	return pattern + scopeSeparator + key
}

// ParamKey builds the unscoped key for param of the callable named name.
func ParamKey(name, param string, withoutPrefix bool) string {
	if withoutPrefix {
		return param
	}
	return name + paramSeparator + param
}

// ValidateKey checks the structural invariants of a configuration key:
// at most one scope separator, and no empty segments.
func ValidateKey(key string) error {
	if key == "" {
		return malformedKey(key, "empty key")
	}
	_, rest, err := SplitKey(key)
	if err != nil {
		return err
	}
	if strings.HasPrefix(rest, paramSeparator) || strings.HasSuffix(rest, paramSeparator) {
		return malformedKey(key, "empty segment around parameter separator")
	}
	return nil
}

func malformedKey(key, reason string) error {
	return errors.New(ErrCodeMalformedKey,
		fmt.Sprintf("malformed configuration key %q: %s", key, reason))
}
