// scope_test.go: Tests for scope projection and the ambient scope stack
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"context"
	"fmt"
	"testing"
)

func TestNewScopeProjection(t *testing.T) {
	m := Mapping{
		"MyClass.x":         "top",
		"MyClass.y":         1,
		"pattern/MyClass.x": "scoped",
		"other/MyClass.y":   2,
	}

	unscoped, err := NewScope(m, "")
	if err != nil {
		t.Fatalf("NewScope failed: %v", err)
	}
	if v, _ := unscoped.Lookup("MyClass.x"); v != "top" {
		t.Errorf("Expected top, got %v", v)
	}
	if unscoped.Len() != 2 {
		t.Errorf("Scoped keys must be dropped, got %v", unscoped.Keys())
	}

	scoped, err := NewScope(m, "pattern")
	if err != nil {
		t.Fatalf("NewScope failed: %v", err)
	}
	if v, _ := scoped.Lookup("MyClass.x"); v != "scoped" {
		t.Errorf("Expected scoped, got %v", v)
	}
	if v, _ := scoped.Lookup("MyClass.y"); v != 1 {
		t.Errorf("Unscoped keys remain visible, got %v", v)
	}
	if _, ok := scoped.Lookup("other/MyClass.y"); ok {
		t.Error("Keys of other patterns must be dropped")
	}
	if scoped.Pattern() != "pattern" {
		t.Errorf("Unexpected pattern %q", scoped.Pattern())
	}

	if _, err := NewScope(Mapping{"a/b/c": 1}, ""); ErrorCode(err) != ErrCodeMalformedKey {
		t.Errorf("Expected malformed key error, got %v", err)
	}
}

func TestScopeMappingIsCopy(t *testing.T) {
	s, _ := NewScope(Mapping{"a": 1}, "")
	m := s.Mapping()
	m["a"] = 2
	if v, _ := s.Lookup("a"); v != 1 {
		t.Error("Mapping() must return a copy")
	}
}

func TestEnterExitRestores(t *testing.T) {
	b, _ := newTestBinder(t)
	before := b.Active()

	h, err := b.Enter(Mapping{"f.a": 1}, "")
	if err != nil {
		t.Fatalf("Enter failed: %v", err)
	}
	if b.Active() != h.Scope() || b.Depth() != 1 {
		t.Fatal("Enter did not activate the scope")
	}
	if err := h.Exit(); err != nil {
		t.Fatalf("Exit failed: %v", err)
	}
	if b.Active() != before || b.Depth() != 0 {
		t.Error("Exit did not restore the previous scope")
	}
	if err := h.Exit(); err != nil {
		t.Errorf("Second Exit should be a no-op, got %v", err)
	}
}

func TestNestedScopesAreLIFO(t *testing.T) {
	b, _ := newTestBinder(t)

	outer, _ := b.Enter(Mapping{"f.a": 1, "train/f.a": 2}, "")
	inner, _ := b.Enter(Mapping{"f.a": 1, "train/f.a": 2}, "train")

	if err := outer.Exit(); ErrorCode(err) != ErrCodeScopeOrder {
		t.Fatalf("Expected scope order error, got %v", err)
	}
	if b.Active() != inner.Scope() {
		t.Error("A failed Exit must not change the active scope")
	}

	if err := inner.Exit(); err != nil {
		t.Fatalf("Inner exit failed: %v", err)
	}
	if b.Active() != outer.Scope() {
		t.Error("Inner exit should restore the outer scope")
	}
	if err := outer.Exit(); err != nil {
		t.Fatalf("Outer exit failed: %v", err)
	}
}

func TestWithScopeRestoresOnError(t *testing.T) {
	b, _ := newTestBinder(t)
	before := b.Active()

	want := fmt.Errorf("boom")
	err := b.WithScope(Mapping{"f.a": 1}, "", func() error {
		return want
	})
	if err != want {
		t.Errorf("Expected fn error to propagate, got %v", err)
	}
	if b.Active() != before {
		t.Error("Scope not restored after error")
	}
}

func TestWithScopeRestoresOnPanic(t *testing.T) {
	b, _ := newTestBinder(t)
	before := b.Active()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("Expected panic to propagate")
			}
		}()
		_ = b.WithScope(Mapping{"f.a": 1}, "", func() error {
			// A nested scope left open by the panic is unwound too.
			if _, err := b.Enter(Mapping{"f.a": 2}, ""); err != nil {
				t.Fatalf("Enter failed: %v", err)
			}
			panic("boom")
		})
	}()

	if b.Active() != before || b.Depth() != 0 {
		t.Errorf("Scope stack not unwound: depth %d", b.Depth())
	}
}

func TestContextScope(t *testing.T) {
	b, _ := newTestBinder(t)
	f, err := BindTo(b, NewSignature("f", Arg("a", 0)), func(a Args) int { return a.Int("a") })
	if err != nil {
		t.Fatalf("BindTo failed: %v", err)
	}

	ctx, err := ContextWithScope(context.Background(), Mapping{"f.a": 1, "p/f.a": 5}, "p")
	if err != nil {
		t.Fatalf("ContextWithScope failed: %v", err)
	}
	if s, ok := ScopeFromContext(ctx); !ok || s.Pattern() != "p" {
		t.Fatal("Scope not carried by context")
	}

	err = b.WithScope(Mapping{"f.a": 9}, "", func() error {
		got, err := f.Call(ctx)
		if err != nil {
			return err
		}
		if got != 5 {
			t.Errorf("Context scope should win over the ambient one, got %d", got)
		}
		got, err = f.Call(context.Background())
		if err != nil {
			return err
		}
		if got != 9 {
			t.Errorf("Expected ambient value 9, got %d", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithScope failed: %v", err)
	}

	if _, ok := ScopeFromContext(context.Background()); ok {
		t.Error("Background context carries no scope")
	}
	if _, err := ContextWithScope(context.Background(), Mapping{"a/b/c": 1}, ""); err == nil {
		t.Error("Expected malformed key error")
	}
}

func TestConcurrentContextScopes(t *testing.T) {
	b, _ := newTestBinder(t)
	f, err := BindTo(b, NewSignature("f", Arg("a", 0)), func(a Args) int { return a.Int("a") })
	if err != nil {
		t.Fatalf("BindTo failed: %v", err)
	}

	m := Mapping{"f.a": 0, "one/f.a": 1, "two/f.a": 2}
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		pattern, want := "one", 1
		if i%2 == 0 {
			pattern, want = "two", 2
		}
		go func() {
			ctx, err := ContextWithScope(context.Background(), m, pattern)
			if err != nil {
				errs <- err
				return
			}
			got, err := f.Call(ctx)
			if err == nil && got != want {
				err = fmt.Errorf("pattern %s: got %d, want %d", pattern, got, want)
			}
			errs <- err
		}()
	}
	for i := 0; i < 20; i++ {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}
