// parsers.go: Configuration file formats for ArgBind
//
// Supported Formats:
// - YAML (.yml, .yaml) via go.yaml.in/yaml/v3
// - JSON (.json, .jsonc) via encoding/json, comments and trailing commas
//   stripped with tidwall/jsonc
// - TOML (.toml) via pelletier/go-toml/v2
//
// Additional formats can be plugged in with RegisterParser.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/agilira/go-errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"go.yaml.in/yaml/v3"
)

// ConfigFormat represents a configuration file format.
type ConfigFormat int

const (
	FormatYAML ConfigFormat = iota
	FormatJSON
	FormatTOML
	FormatUnknown
)

// String returns the string representation of the config format for debugging and logging.
func (cf ConfigFormat) String() string {
	switch cf {
	case FormatJSON:
		return "JSON"
	case FormatYAML:
		return "YAML"
	case FormatTOML:
		return "TOML"
	default:
		return "Unknown"
	}
}

// ParseFormat converts a format name ("yaml", "json", "toml") into a
// ConfigFormat.
func ParseFormat(name string) ConfigFormat {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "yaml", "yml":
		return FormatYAML
	case "json", "jsonc":
		return FormatJSON
	case "toml":
		return FormatTOML
	default:
		return FormatUnknown
	}
}

// DetectFormat detects the configuration format from the file extension.
func DetectFormat(filePath string) ConfigFormat {
	return ParseFormat(filepath.Ext(filePath))
}

// ConfigParser is a pluggable parser for formats without built-in support,
// or a replacement for a built-in one.
type ConfigParser interface {
	// Parse parses configuration data into a flat mapping
	Parse(data []byte) (map[string]interface{}, error)

	// Supports returns true if this parser can handle the given format
	Supports(format ConfigFormat) bool

	// Name returns a human-readable name for this parser (for debugging)
	Name() string
}

var (
	customParsers []ConfigParser
	parserMutex   sync.RWMutex
)

// RegisterParser registers a custom parser. Custom parsers are tried before
// the built-in ones.
func RegisterParser(parser ConfigParser) {
	parserMutex.Lock()
	defer parserMutex.Unlock()
	customParsers = append(customParsers, parser)
}

// ParseConfig parses data in the given format. Numbers are normalized to
// int when integral and float64 otherwise, whatever the codec produced.
func ParseConfig(data []byte, format ConfigFormat) (Mapping, error) {
	parserMutex.RLock()
	for _, parser := range customParsers {
		if parser.Supports(format) {
			parserMutex.RUnlock()
			out, err := parser.Parse(data)
			if err != nil {
				return nil, errors.Wrap(err, ErrCodeParseError,
					fmt.Sprintf("%s parser failed", parser.Name()))
			}
			return normalizeMapping(out), nil
		}
	}
	parserMutex.RUnlock()

	var (
		out map[string]interface{}
		err error
	)
	switch format {
	case FormatYAML:
		out, err = parseYAML(data)
	case FormatJSON:
		out, err = parseJSON(data)
	case FormatTOML:
		out, err = parseTOML(data)
	default:
		return nil, errors.New(ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported format: %s", format))
	}
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeParseError,
			fmt.Sprintf("invalid %s document", format))
	}
	return normalizeMapping(out), nil
}

func parseYAML(data []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func parseJSON(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func parseTOML(data []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := toml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeMapping(in map[string]interface{}) Mapping {
	out := make(Mapping, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case int64:
		return int(t)
	case uint64:
		return int(t)
	case map[string]interface{}:
		return map[string]interface{}(normalizeMapping(t))
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

// MarshalConfig serializes m in the given format. YAML output is sorted by
// key and separates groups of keys sharing their first dotted segment with
// a blank line.
func MarshalConfig(m Mapping, format ConfigFormat) ([]byte, error) {
	switch format {
	case FormatYAML:
		return serializeYAML(m)
	case FormatJSON:
		doc := make(map[string]interface{}, len(m))
		for k, v := range m {
			doc[k] = keepFloats(v, func(lit string) interface{} { return json.Number(lit) })
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeWriteError, "cannot encode JSON")
		}
		return append(data, '\n'), nil
	case FormatTOML:
		// TOML has no null: unset values are left out.
		clean := make(map[string]interface{}, len(m))
		for k, v := range m {
			if v != nil {
				clean[k] = v
			}
		}
		data, err := toml.Marshal(clean)
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeWriteError, "cannot encode TOML")
		}
		return data, nil
	default:
		return nil, errors.New(ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported format: %s", format))
	}
}

func serializeYAML(m Mapping) ([]byte, error) {
	doc := make(map[string]interface{}, len(m))
	for k, v := range m {
		doc[k] = keepFloats(v, func(lit string) interface{} {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: lit}
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(err, ErrCodeWriteError, "cannot encode YAML")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, ErrCodeWriteError, "cannot encode YAML")
	}

	var out strings.Builder
	prev := ""
	for _, line := range strings.SplitAfter(buf.String(), "\n") {
		if line == "" {
			continue
		}
		if group, ok := yamlGroup(line); ok {
			if prev != "" && group != prev {
				out.WriteByte('\n')
			}
			prev = group
		}
		out.WriteString(line)
	}
	return []byte(out.String()), nil
}

// yamlGroup returns the first dotted segment of a top-level key line.
// Continuation lines (indented, list items, block scalars) have no group.
func yamlGroup(line string) (string, bool) {
	if line == "" || line[0] == ' ' || line[0] == '-' || line[0] == '#' || line[0] == '\n' {
		return "", false
	}
	key := line
	if i := strings.Index(key, ":"); i >= 0 {
		key = key[:i]
	}
	key = strings.Trim(key, `"'`)
	group, _, _ := strings.Cut(key, paramSeparator)
	return group, true
}

// floatLiteral renders a whole-number float with a fraction or exponent so
// decoders read it back as a float. Other values need no rewriting.
func floatLiteral(f float64) (string, bool) {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return "", false
	}
	lit := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(lit, ".e") {
		lit += ".0"
	}
	return lit, true
}

// keepFloats replaces whole-number floats in v, at any depth of slices and
// string-keyed maps, with the encoder-specific literal built by wrap.
func keepFloats(v interface{}, wrap func(lit string) interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		if lit, ok := floatLiteral(t); ok {
			return wrap(lit)
		}
		return t
	case float32:
		if lit, ok := floatLiteral(float64(t)); ok {
			return wrap(lit)
		}
		return t
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = keepFloats(rv.Index(i).Interface(), wrap)
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = keepFloats(iter.Value().Interface(), wrap)
		}
		return out
	default:
		return v
	}
}
