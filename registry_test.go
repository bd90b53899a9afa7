// registry_test.go: Tests for the callable registry and name derivation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"testing"
)

func trainModel(a Args) float64 {
	return a.Float("lr")
}

type model struct {
	depth int
}

func (m *model) fit(a Args) int {
	return m.depth + a.Int("epochs")
}

func (m model) score(a Args) int {
	return m.depth * a.Int("k")
}

type Dataset struct {
	Folder string
}

func TestFuncName(t *testing.T) {
	m := &model{}
	tests := []struct {
		name string
		fn   any
		want string
	}{
		{"package function", trainModel, "trainModel"},
		{"pointer method value", m.fit, "model.fit"},
		{"value method value", model{}.score, "model.score"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := funcName(tt.fn)
			if err != nil {
				t.Fatalf("funcName failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("funcName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFuncNameRejectsClosures(t *testing.T) {
	_, err := funcName(func(a Args) int { return 0 })
	if err == nil {
		t.Fatal("Expected closure to be unnamable")
	}
	if ErrorCode(err) != ErrCodeUnnamedCallable {
		t.Errorf("Expected %s, got %s", ErrCodeUnnamedCallable, ErrorCode(err))
	}

	var nilFn func(Args) int
	if _, err := funcName(nilFn); err == nil {
		t.Error("Expected error for nil function")
	}
}

func TestTypeName(t *testing.T) {
	if got, err := typeName[*Dataset](); err != nil || got != "Dataset" {
		t.Errorf("typeName[*Dataset] = %q, %v", got, err)
	}
	if got, err := typeName[Dataset](); err != nil || got != "Dataset" {
		t.Errorf("typeName[Dataset] = %q, %v", got, err)
	}
	if _, err := typeName[[]int](); err == nil {
		t.Error("Expected unnamed type to be rejected")
	}
}

func TestBindNamePrecedence(t *testing.T) {
	b, _ := newTestBinder(t)

	derived, err := BindTo(b, NewSignature("", Arg("lr", 0.1)), trainModel)
	if err != nil {
		t.Fatalf("BindTo failed: %v", err)
	}
	if derived.Name() != "trainModel" {
		t.Errorf("Expected derived name trainModel, got %s", derived.Name())
	}

	named, err := BindTo(b, NewSignature("train", Arg("lr", 0.1)), trainModel)
	if err != nil {
		t.Fatalf("BindTo failed: %v", err)
	}
	if named.Name() != "train" {
		t.Errorf("Signature name should win, got %s", named.Name())
	}

	overridden, err := BindTo(b, NewSignature("train", Arg("lr", 0.1)), trainModel, WithName("fit"))
	if err != nil {
		t.Fatalf("BindTo failed: %v", err)
	}
	if overridden.Name() != "fit" {
		t.Errorf("WithName should win, got %s", overridden.Name())
	}

	if _, err := BindTo(b, NewSignature("", Arg("x", 1)), func(a Args) int { return 0 }); ErrorCode(err) != ErrCodeUnnamedCallable {
		t.Errorf("Expected unnamed callable error, got %v", err)
	}
	if _, err := BindTo(b, NewSignature("a/b", Arg("x", 1)), trainModel); ErrorCode(err) != ErrCodeInvalidSignature {
		t.Errorf("Expected invalid name error, got %v", err)
	}
	if _, err := BindTo(b, NewSignature("f", Arg("x", 1)), trainModel, WithScopes("bad/pattern")); ErrorCode(err) != ErrCodeInvalidSignature {
		t.Errorf("Expected invalid pattern error, got %v", err)
	}
}

func TestConstructorUsesTypeName(t *testing.T) {
	b, _ := newTestBinder(t)

	newDataset := func(a Args) *Dataset {
		return &Dataset{Folder: a.String("folder")}
	}
	ctor, err := ConstructorTo(b, NewSignature("", Arg("folder", "data")), newDataset)
	if err != nil {
		t.Fatalf("ConstructorTo failed: %v", err)
	}
	if ctor.Name() != "Dataset" {
		t.Errorf("Expected name Dataset, got %s", ctor.Name())
	}
	entry, ok := ctor.Entry()
	if !ok {
		t.Fatal("Entry not registered")
	}
	if entry.Key("folder") != "Dataset.folder" {
		t.Errorf("Unexpected key %s", entry.Key("folder"))
	}
}

func TestPositionalDropsScopes(t *testing.T) {
	b, _ := newTestBinder(t)

	f, err := BindTo(b, NewSignature("f", Required("path")), trainModel,
		Positional(), WithScopes("train"))
	if err != nil {
		t.Fatalf("Positional with scopes must not fail: %v", err)
	}
	entry, _ := f.Entry()
	if len(entry.Scopes) != 0 {
		t.Errorf("Expected scopes to be cleared, got %v", entry.Scopes)
	}
	if !entry.Positional {
		t.Error("Expected positional mode")
	}
}

func TestRegistryOverwriteKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&Entry{Name: "a"})
	r.Register(&Entry{Name: "b"})
	r.Register(&Entry{Name: "a", Group: "g"})

	entries := r.Entries()
	if len(entries) != 2 || r.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "a" || entries[0].Group != "g" {
		t.Errorf("Overwrite should replace in place, got %+v", entries[0])
	}

	e, _ := r.Lookup("a")
	e.Group = "mutated"
	again, _ := r.Lookup("a")
	if again.Group != "g" {
		t.Error("Lookup must return a copy")
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup of unknown name should fail")
	}
}

func TestEntryInGroup(t *testing.T) {
	ungrouped := &Entry{Name: "a"}
	grouped := &Entry{Name: "b", Group: "eval"}

	if !ungrouped.InGroup("") || !ungrouped.InGroup("eval") {
		t.Error("Ungrouped entries take part in every group")
	}
	if grouped.InGroup("") || grouped.InGroup("train") || !grouped.InGroup("eval") {
		t.Error("Grouped entries only take part in their own group")
	}
}
