// scope.go: Scoped activation of configuration mappings
//
// A Scope is an immutable projection of a flat mapping for one pattern:
// every "pattern/rest" key overrides "rest", then all scoped keys are
// dropped. Scopes are activated either on the Binder's ambient stack
// (Enter/Exit, WithScope) or carried by a context.Context.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"context"
	"fmt"
	"sort"

	"github.com/agilira/go-errors"
)

// Scope is an activated, projected mapping.
type Scope struct {
	mapping Mapping
	pattern string
}

func emptyScope() *Scope {
	return &Scope{mapping: Mapping{}}
}

// NewScope projects m for pattern. Keys scoped to other patterns are
// dropped; malformed keys are rejected.
func NewScope(m Mapping, pattern string) (*Scope, error) {
	projected := make(Mapping, len(m))
	overrides := make(Mapping)

	for key, value := range m {
		p, rest, err := SplitKey(key)
		if err != nil {
			return nil, err
		}
		switch {
		case p == "":
			projected[key] = value
		case pattern != "" && p == pattern:
			overrides[rest] = value
		}
	}
	for key, value := range overrides {
		projected[key] = value
	}

	return &Scope{mapping: projected, pattern: pattern}, nil
}

// Pattern returns the scope pattern, empty for the default scope.
func (s *Scope) Pattern() string {
	return s.pattern
}

// Lookup returns the projected value of key.
func (s *Scope) Lookup(key string) (any, bool) {
	v, ok := s.mapping[key]
	return v, ok
}

// Mapping returns a copy of the projected mapping.
func (s *Scope) Mapping() Mapping {
	return s.mapping.Clone()
}

// Keys returns the projected keys in sorted order.
func (s *Scope) Keys() []string {
	keys := make([]string, 0, len(s.mapping))
	for k := range s.mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of projected keys.
func (s *Scope) Len() int {
	return len(s.mapping)
}

func (s *Scope) debug() bool {
	v, ok := s.mapping[KeyDebug]
	return ok && truthy(v)
}

// ScopeHandle restores the state that preceded an Enter.
type ScopeHandle struct {
	binder *Binder
	scope  *Scope
	prev   *Scope
	exited bool
}

// Scope returns the scope activated by the handle.
func (h *ScopeHandle) Scope() *Scope {
	return h.scope
}

// Enter projects m for pattern and makes it the ambient scope until the
// returned handle exits.
func (b *Binder) Enter(m Mapping, pattern string) (*ScopeHandle, error) {
	scope, err := NewScope(m, pattern)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	h := &ScopeHandle{binder: b, scope: scope, prev: b.active}
	b.stack = append(b.stack, h)
	b.active = scope
	b.mu.Unlock()

	b.audit.LogScope(EventScopeEnter, pattern, scope.Len())
	return h, nil
}

// Exit reinstates the scope that was active before Enter. Handles must exit
// in reverse order of entry; exiting twice is a no-op.
func (h *ScopeHandle) Exit() error {
	b := h.binder
	b.mu.Lock()
	if h.exited {
		b.mu.Unlock()
		return nil
	}
	if n := len(b.stack); n == 0 || b.stack[n-1] != h {
		b.mu.Unlock()
		return errors.New(ErrCodeScopeOrder,
			fmt.Sprintf("scope %q exited while a nested scope is still active", h.scope.pattern))
	}
	b.stack = b.stack[:len(b.stack)-1]
	b.active = h.prev
	h.exited = true
	b.mu.Unlock()

	b.audit.LogScope(EventScopeExit, h.scope.pattern, h.scope.Len())
	return nil
}

// unwind exits h together with any nested scope left open above it.
func (h *ScopeHandle) unwind() {
	b := h.binder
	b.mu.Lock()
	if h.exited {
		b.mu.Unlock()
		return
	}
	var closed []*ScopeHandle
	for i := len(b.stack) - 1; i >= 0; i-- {
		top := b.stack[i]
		top.exited = true
		b.stack = b.stack[:i]
		closed = append(closed, top)
		if top == h {
			break
		}
	}
	b.active = h.prev
	b.mu.Unlock()

	for _, c := range closed {
		b.audit.LogScope(EventScopeExit, c.scope.pattern, c.scope.Len())
	}
}

// WithScope runs fn with m projected for pattern as the ambient scope. The
// previous scope is restored however fn returns, including by panic.
func (b *Binder) WithScope(m Mapping, pattern string, fn func() error) error {
	h, err := b.Enter(m, pattern)
	if err != nil {
		return err
	}
	defer func() {
		if exitErr := h.Exit(); exitErr != nil {
			h.unwind()
		}
	}()
	return fn()
}

// Active returns the ambient scope of b.
func (b *Binder) Active() *Scope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Depth returns the number of ambient scopes currently entered.
func (b *Binder) Depth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stack)
}

// Enter activates a scope on the default Binder.
func Enter(m Mapping, pattern string) (*ScopeHandle, error) {
	return Default().Enter(m, pattern)
}

// WithScope runs fn inside a scope of the default Binder.
func WithScope(m Mapping, pattern string, fn func() error) error {
	return Default().WithScope(m, pattern, fn)
}

type scopeContextKey struct{}
type debugContextKey struct{}

// ContextWithScope returns a copy of ctx carrying m projected for pattern.
// Calls made with that context resolve against it instead of the ambient
// scope, which makes it safe for concurrent use.
func ContextWithScope(ctx context.Context, m Mapping, pattern string) (context.Context, error) {
	scope, err := NewScope(m, pattern)
	if err != nil {
		return ctx, err
	}
	return context.WithValue(ctx, scopeContextKey{}, scope), nil
}

// ScopeFromContext returns the scope carried by ctx, if any.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	scope, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return scope, ok
}

// ContextWithDebug enables the call dump for calls made with ctx.
func ContextWithDebug(ctx context.Context, level int) context.Context {
	return context.WithValue(ctx, debugContextKey{}, level)
}

func debugFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	level, ok := ctx.Value(debugContextKey{}).(int)
	return ok && level != 0
}
