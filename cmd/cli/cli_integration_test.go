// cli_integration_test.go: CLI Integration Testing
//
// Exercises the argbind CLI Manager the way a user would: real files in an
// isolated directory, commands run through Manager.Run, output captured.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// CLI TEST INFRASTRUCTURE
// =============================================================================

// CLITestFixture manages CLI testing in isolated environments
type CLITestFixture struct {
	t       *testing.T
	tempDir string
	manager *Manager
	out     *bytes.Buffer
}

// NewCLITestFixture creates an isolated environment for CLI testing
func NewCLITestFixture(t *testing.T) *CLITestFixture {
	t.Helper()

	out := &bytes.Buffer{}
	return &CLITestFixture{
		t:       t,
		tempDir: t.TempDir(),
		manager: NewManager().WithOutput(out),
		out:     out,
	}
}

// RunCLI executes a command and returns its trimmed output.
func (f *CLITestFixture) RunCLI(args ...string) (string, error) {
	f.t.Helper()
	f.out.Reset()
	err := f.manager.Run(args)
	return strings.TrimSpace(f.out.String()), err
}

// CreateFile writes a file in the temp directory and returns its path.
func (f *CLITestFixture) CreateFile(name, content string) string {
	f.t.Helper()
	path := filepath.Join(f.tempDir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		f.t.Fatalf("Failed to create %s: %v", name, err)
	}
	return path
}

// ReadFile returns the content of path.
func (f *CLITestFixture) ReadFile(path string) string {
	f.t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		f.t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(content)
}

// =============================================================================
// WORKFLOWS
// =============================================================================

func TestCLIEditWorkflow(t *testing.T) {
	f := NewCLITestFixture(t)
	path := filepath.Join(f.tempDir, "args.yml")

	if _, err := f.RunCLI("set", path, "train.lr", "0.01"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := f.RunCLI("set", path, "train.layers", "[64, 32]"); err != nil {
		t.Fatalf("set list failed: %v", err)
	}
	if _, err := f.RunCLI("set", path, "train.tag", "42", "--string"); err != nil {
		t.Fatalf("set string failed: %v", err)
	}

	out, err := f.RunCLI("get", path, "train.lr")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if out != "0.01" {
		t.Errorf("Expected 0.01, got %q", out)
	}

	out, err = f.RunCLI("get", path, "train.layers")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if out != "64 32" {
		t.Errorf("Expected list rendering, got %q", out)
	}

	content := f.ReadFile(path)
	if !strings.Contains(content, `train.tag: "42"`) {
		t.Errorf("--string should store a string:\n%s", content)
	}

	if _, err := f.RunCLI("unset", path, "train.tag"); err != nil {
		t.Fatalf("unset failed: %v", err)
	}
	if _, err := f.RunCLI("get", path, "train.tag"); err == nil {
		t.Error("Expected get of removed key to fail")
	}
	if _, err := f.RunCLI("unset", path, "train.tag"); err == nil {
		t.Error("Expected unset of missing key to fail")
	}
}

func TestCLIShowExpandsIncludes(t *testing.T) {
	f := NewCLITestFixture(t)
	f.CreateFile("base.yml", "train.lr: 0.1\ntrain.epochs: 10\n")
	path := f.CreateFile("exp.yml", "$include: [base.yml]\n$vars:\n  OUT: /results\ntrain.lr: 0.01\nout.dir: $OUT\nval/train.lr: 0.5\n")

	out, err := f.RunCLI("show", path)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	for _, want := range []string{"train.lr = 0.01", "train.epochs = 10", "out.dir = /results", "val/train.lr = 0.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "$include") {
		t.Error("Directives should be expanded")
	}

	out, err = f.RunCLI("keys", path, "--prefix", "train.")
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	if out != "train.epochs\ntrain.lr" {
		t.Errorf("Unexpected keys:\n%s", out)
	}

	out, err = f.RunCLI("scope", path, "val")
	if err != nil {
		t.Fatalf("scope failed: %v", err)
	}
	if !strings.Contains(out, "train.lr = 0.5") || strings.Contains(out, "val/") {
		t.Errorf("Unexpected projection:\n%s", out)
	}
}

func TestCLIConvert(t *testing.T) {
	f := NewCLITestFixture(t)
	f.CreateFile("base.yml", "train.epochs: 10\n")
	input := f.CreateFile("args.yml", "$include: [base.yml]\ntrain.lr: 0.5\n")

	raw := filepath.Join(f.tempDir, "raw.json")
	if _, err := f.RunCLI("convert", input, raw); err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if content := f.ReadFile(raw); !strings.Contains(content, `"$include"`) || strings.Contains(content, "train.epochs") {
		t.Errorf("Raw conversion should keep directives:\n%s", content)
	}

	expanded := filepath.Join(f.tempDir, "expanded.toml")
	if _, err := f.RunCLI("convert", input, expanded, "--expand"); err != nil {
		t.Fatalf("convert --expand failed: %v", err)
	}
	content := f.ReadFile(expanded)
	if !strings.Contains(content, "train.epochs") || strings.Contains(content, "$include") {
		t.Errorf("Expanded conversion should inline includes:\n%s", content)
	}
}

func TestCLIValidate(t *testing.T) {
	f := NewCLITestFixture(t)
	good := f.CreateFile("good.yml", "train.lr: 0.1\nval/train.lr: 0.2\n")
	bad := f.CreateFile("bad.yml", "a/b/c: 1\ntrain.: 2\n")

	out, err := f.RunCLI("validate", good)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "keys OK") {
		t.Errorf("Unexpected output: %q", out)
	}

	if _, err := f.RunCLI("validate", bad); err == nil {
		t.Error("Expected malformed keys to fail validation")
	}
}
