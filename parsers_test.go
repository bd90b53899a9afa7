// parsers_test.go: Tests for configuration formats
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := map[string]ConfigFormat{
		"args.yml":   FormatYAML,
		"args.YAML":  FormatYAML,
		"args.json":  FormatJSON,
		"args.jsonc": FormatJSON,
		"args.toml":  FormatTOML,
		"args.ini":   FormatUnknown,
		"args":       FormatUnknown,
	}
	for path, want := range tests {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %s, want %s", path, got, want)
		}
	}
	if ParseFormat("yaml") != FormatYAML || ParseFormat("bogus") != FormatUnknown {
		t.Error("ParseFormat returned wrong formats")
	}
}

func TestParseConfigNormalizesNumbers(t *testing.T) {
	tests := []struct {
		format ConfigFormat
		data   string
	}{
		{FormatYAML, "i: 3\nf: 0.5\nnested: {n: 1}\nlist: [1, 2.5]\n"},
		{FormatJSON, `{"i": 3, "f": 0.5, "nested": {"n": 1}, "list": [1, 2.5]}`},
		{FormatTOML, "i = 3\nf = 0.5\nlist = [1, 2.5]\n[nested]\nn = 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			m, err := ParseConfig([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("ParseConfig failed: %v", err)
			}
			if m["i"] != 3 || m["f"] != 0.5 {
				t.Errorf("Scalars: %#v %#v", m["i"], m["f"])
			}
			if nested, ok := m["nested"].(map[string]interface{}); !ok || nested["n"] != 1 {
				t.Errorf("Nested: %#v", m["nested"])
			}
			if !reflect.DeepEqual(m["list"], []interface{}{1, 2.5}) {
				t.Errorf("List: %#v", m["list"])
			}
		})
	}
}

func TestParseConfigErrors(t *testing.T) {
	if _, err := ParseConfig([]byte("{"), FormatJSON); ErrorCode(err) != ErrCodeParseError {
		t.Errorf("Expected parse error, got %v", err)
	}
	if _, err := ParseConfig([]byte("a = "), FormatTOML); ErrorCode(err) != ErrCodeParseError {
		t.Errorf("Expected parse error, got %v", err)
	}
	if _, err := ParseConfig([]byte("a"), FormatUnknown); ErrorCode(err) != ErrCodeUnsupportedFormat {
		t.Errorf("Expected unsupported format, got %v", err)
	}
	if _, err := MarshalConfig(Mapping{}, FormatUnknown); ErrorCode(err) != ErrCodeUnsupportedFormat {
		t.Errorf("Expected unsupported format, got %v", err)
	}
}

func TestMarshalTOMLDropsNil(t *testing.T) {
	data, err := MarshalConfig(Mapping{"a": 1, "b": nil}, FormatTOML)
	if err != nil {
		t.Fatalf("MarshalConfig failed: %v", err)
	}
	if strings.Contains(string(data), "b") {
		t.Errorf("Nil values should be dropped:\n%s", data)
	}
}

func TestMarshalKeepsWholeFloats(t *testing.T) {
	m := Mapping{
		"train.scale":  2.0,
		"train.lr":     0.5,
		"train.big":    1e21,
		"train.steps":  3,
		"train.limits": []float64{1, 0.25},
	}

	tests := []struct {
		format ConfigFormat
		want   []string
	}{
		{FormatYAML, []string{"train.scale: 2.0\n", "train.lr: 0.5\n", "train.big: 1e+21\n", "train.steps: 3\n", "- 1.0\n"}},
		{FormatJSON, []string{`"train.scale": 2.0`, `"train.lr": 0.5`, `"train.big": 1e+21`, `"train.steps": 3`, "1.0,"}},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			data, err := MarshalConfig(m, tt.format)
			if err != nil {
				t.Fatalf("MarshalConfig failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(string(data), want) {
					t.Errorf("output missing %q:\n%s", want, data)
				}
			}

			parsed, err := ParseConfig(data, tt.format)
			if err != nil {
				t.Fatalf("ParseConfig failed: %v", err)
			}
			if v, ok := parsed["train.scale"].(float64); !ok || v != 2.0 {
				t.Errorf("train.scale = %#v, want float64 2", parsed["train.scale"])
			}
			if v, ok := parsed["train.steps"].(int); !ok || v != 3 {
				t.Errorf("train.steps = %#v, want int 3", parsed["train.steps"])
			}
			if !reflect.DeepEqual(parsed["train.limits"], []any{1.0, 0.25}) {
				t.Errorf("train.limits = %#v", parsed["train.limits"])
			}
		})
	}
}

func TestYAMLGroup(t *testing.T) {
	tests := []struct {
		line  string
		group string
		ok    bool
	}{
		{"train.lr: 0.1\n", "train", true},
		{"val/train.lr: 0.1\n", "val/train", true},
		{"seed: 1\n", "seed", true},
		{"\"$include\":\n", "$include", true},
		{"  - item\n", "", false},
		{"- item\n", "", false},
	}
	for _, tt := range tests {
		group, ok := yamlGroup(tt.line)
		if group != tt.group || ok != tt.ok {
			t.Errorf("yamlGroup(%q) = (%q, %v), want (%q, %v)", tt.line, group, ok, tt.group, tt.ok)
		}
	}
}

type upperParser struct{}

func (upperParser) Parse(data []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("bad line %q", line)
		}
		out[k] = strings.ToUpper(v)
	}
	return out, nil
}

func (upperParser) Supports(format ConfigFormat) bool { return format == FormatUnknown }
func (upperParser) Name() string                      { return "upper" }

func TestRegisterParser(t *testing.T) {
	parserMutex.Lock()
	saved := customParsers
	parserMutex.Unlock()
	defer func() {
		parserMutex.Lock()
		customParsers = saved
		parserMutex.Unlock()
	}()

	RegisterParser(upperParser{})

	m, err := ParseConfig([]byte("a=x\nb=y"), FormatUnknown)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if m["a"] != "X" || m["b"] != "Y" {
		t.Errorf("Custom parser not used: %v", m)
	}
	if _, err := ParseConfig([]byte("broken"), FormatUnknown); ErrorCode(err) != ErrCodeParseError {
		t.Errorf("Expected parse error from custom parser, got %v", err)
	}
}
