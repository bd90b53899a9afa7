// bind.go: Binding callables to the configuration namespace
//
// A bound callable keeps the call shape of the original function: callers
// pass positional and keyword arguments as usual and every parameter they
// leave out is looked up in the active scope before falling back to its
// default.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"context"
	"fmt"

	"github.com/agilira/go-errors"
)

// Bound is a registered callable producing T.
type Bound[T any] struct {
	binder *Binder
	name   string
	fn     func(Args) T
}

// Bind registers fn on the default Binder.
func Bind[T any](sig Signature, fn func(Args) T, opts ...BindOption) (*Bound[T], error) {
	return BindTo(Default(), sig, fn, opts...)
}

// MustBind is like Bind but panics on error. It simplifies package-level
// variable initialization.
func MustBind[T any](sig Signature, fn func(Args) T, opts ...BindOption) *Bound[T] {
	bound, err := Bind(sig, fn, opts...)
	if err != nil {
		panic(err)
	}
	return bound
}

// BindTo registers fn on b. Without WithName or a Signature name, the
// canonical name is derived from the function: "train" for a package-level
// function, "Model.Fit" for a method value.
func BindTo[T any](b *Binder, sig Signature, fn func(Args) T, opts ...BindOption) (*Bound[T], error) {
	entry, err := b.register(sig, func() (string, error) { return funcName(fn) }, opts)
	if err != nil {
		return nil, err
	}
	return &Bound[T]{binder: b, name: entry.Name, fn: fn}, nil
}

// Constructor registers a factory for T on the default Binder. The canonical
// name is the name of T (pointer stripped), not the factory's own name, so
// every construction through the factory shares one set of keys.
func Constructor[T any](sig Signature, fn func(Args) T, opts ...BindOption) (*Bound[T], error) {
	return ConstructorTo(Default(), sig, fn, opts...)
}

// ConstructorTo registers a factory for T on b.
func ConstructorTo[T any](b *Binder, sig Signature, fn func(Args) T, opts ...BindOption) (*Bound[T], error) {
	entry, err := b.register(sig, typeName[T], opts)
	if err != nil {
		return nil, err
	}
	return &Bound[T]{binder: b, name: entry.Name, fn: fn}, nil
}

// Name returns the canonical name.
func (f *Bound[T]) Name() string {
	return f.name
}

// Entry returns the current registry entry for the callable.
func (f *Bound[T]) Entry() (*Entry, bool) {
	return f.binder.registry.Lookup(f.name)
}

// Call invokes the callable with positional arguments, injecting the
// remaining parameters from the scope carried by ctx or, failing that, the
// ambient scope.
func (f *Bound[T]) Call(ctx context.Context, pos ...any) (T, error) {
	return f.CallWith(ctx, nil, pos...)
}

// CallWith invokes the callable with keyword and positional arguments.
func (f *Bound[T]) CallWith(ctx context.Context, kw Kwargs, pos ...any) (T, error) {
	res, err := f.binder.resolve(ctx, f.name, kw, pos, true)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.fn(res.args), nil
}

// MustCall is like Call but panics on error.
func (f *Bound[T]) MustCall(ctx context.Context, pos ...any) T {
	out, err := f.Call(ctx, pos...)
	if err != nil {
		panic(err)
	}
	return out
}

// Resolve returns the arguments a call would receive, without calling.
func (f *Bound[T]) Resolve(ctx context.Context, kw Kwargs, pos ...any) (Args, error) {
	res, err := f.binder.resolve(ctx, f.name, kw, pos, true)
	if err != nil {
		return Args{}, err
	}
	return res.args, nil
}

// Unbound invokes the original function with only the given arguments and
// declared defaults: no scope lookup, no usage recording.
func (f *Bound[T]) Unbound(kw Kwargs, pos ...any) (T, error) {
	res, err := f.binder.resolve(context.Background(), f.name, kw, pos, false)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.fn(res.args), nil
}

// Member is one callable of a Namespace.
type Member struct {
	Name      string
	Signature Signature
	Fn        func(Args) any
}

// Namespace is an ordered collection of callables registered together.
type Namespace []Member

// BoundNamespace exposes the bound versions of a namespace's members under
// their original names. The source Namespace is left untouched.
type BoundNamespace struct {
	members map[string]*Bound[any]
	order   []string
}

// BindNamespace registers every member of ns accepted by filter (nil
// accepts all) with the same options. Members whose name cannot be
// resolved are skipped.
func BindNamespace(b *Binder, ns Namespace, filter func(name string, sig Signature) bool, opts ...BindOption) (*BoundNamespace, error) {
	out := &BoundNamespace{members: make(map[string]*Bound[any])}
	for _, m := range ns {
		if m.Fn == nil {
			continue
		}

		sig := m.Signature
		if sig.Name == "" {
			sig.Name = m.Name
		}
		if sig.Name == "" {
			name, err := funcName(m.Fn)
			if err != nil {
				continue
			}
			sig.Name = name
		}

		key := m.Name
		if key == "" {
			key = sig.Name
		}
		if filter != nil && !filter(key, sig) {
			continue
		}

		bound, err := BindTo(b, sig, m.Fn, opts...)
		if err != nil {
			return nil, err
		}
		if _, dup := out.members[key]; !dup {
			out.order = append(out.order, key)
		}
		out.members[key] = bound
	}
	return out, nil
}

// Get returns the bound member registered under name.
func (ns *BoundNamespace) Get(name string) (*Bound[any], bool) {
	f, ok := ns.members[name]
	return f, ok
}

// Names returns the member names in namespace order.
func (ns *BoundNamespace) Names() []string {
	return append([]string(nil), ns.order...)
}

// Call invokes the bound member name.
func (ns *BoundNamespace) Call(ctx context.Context, name string, kw Kwargs, pos ...any) (any, error) {
	f, ok := ns.members[name]
	if !ok {
		return nil, errors.New(ErrCodeUnknownArgument, fmt.Sprintf("namespace has no member %q", name))
	}
	return f.CallWith(ctx, kw, pos...)
}
