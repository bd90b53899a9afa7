// registry.go: Callable registry for ArgBind
//
// Every bound callable is recorded under its canonical name together with
// its scope patterns and binding mode. Registering a name again replaces
// the previous entry in place: registration is idempotent by name.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"github.com/agilira/go-errors"
)

// Entry is the immutable binding record of one callable.
type Entry struct {
	Name          string
	Scopes        []string
	WithoutPrefix bool
	Positional    bool
	Group         string
	Signature     Signature
}

// Key returns the unscoped configuration key of param.
func (e *Entry) Key(param string) string {
	return ParamKey(e.Name, param, e.WithoutPrefix)
}

// Bindable returns the parameters of e eligible for injection.
func (e *Entry) Bindable() []Param {
	return e.Signature.Bindable(e.Positional)
}

// InGroup reports whether e takes part in group. Ungrouped entries take
// part in every group.
func (e *Entry) InGroup(group string) bool {
	return e.Group == "" || e.Group == group
}

func (e *Entry) clone() *Entry {
	out := *e
	out.Scopes = append([]string(nil), e.Scopes...)
	out.Signature = e.Signature.clone()
	return &out
}

// Registry stores entries by canonical name, in first-registration order.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register stores e, replacing any entry with the same name.
func (r *Registry) Register(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[e.Name]; !exists {
		r.order = append(r.order, e.Name)
	}
	r.entries[e.Name] = e.clone()
}

// Lookup returns a copy of the entry registered under name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.clone(), true
}

// Entries returns copies of all entries in registration order.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].clone())
	}
	return out
}

// Len returns the number of registered callables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// BindOption configures a registration.
type BindOption func(*bindOptions)

type bindOptions struct {
	name          string
	scopes        []string
	withoutPrefix bool
	positional    bool
	group         string
}

// WithScopes declares the scope patterns the callable can be overridden in.
func WithScopes(patterns ...string) BindOption {
	return func(o *bindOptions) {
		o.scopes = append(o.scopes, patterns...)
	}
}

// WithoutPrefix binds parameters as "param" instead of "name.param".
func WithoutPrefix() BindOption {
	return func(o *bindOptions) {
		o.withoutPrefix = true
	}
}

// Positional makes every declared parameter bindable, including those
// without a default. It cannot be combined with scope patterns.
func Positional() BindOption {
	return func(o *bindOptions) {
		o.positional = true
	}
}

// InGroup restricts the callable's flags to the named group.
func InGroup(group string) BindOption {
	return func(o *bindOptions) {
		o.group = group
	}
}

// WithName overrides the canonical name.
func WithName(name string) BindOption {
	return func(o *bindOptions) {
		o.name = name
	}
}

// register builds and stores the entry for sig. fallback names the callable
// when neither WithName nor sig.Name does.
func (b *Binder) register(sig Signature, fallback func() (string, error), opts []BindOption) (*Entry, error) {
	o := bindOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	name := o.name
	if name == "" {
		name = sig.Name
	}
	if name == "" {
		derived, err := fallback()
		if err != nil {
			return nil, err
		}
		name = derived
	}
	if strings.ContainsAny(name, "/ ") || name == "" {
		return nil, errors.New(ErrCodeInvalidSignature,
			fmt.Sprintf("invalid canonical name %q", name))
	}
	sig.Name = name

	if err := sig.validate(); err != nil {
		return nil, err
	}

	for _, p := range o.scopes {
		if p == "" || strings.ContainsAny(p, "/. ") {
			return nil, errors.New(ErrCodeInvalidSignature,
				fmt.Sprintf("invalid scope pattern %q for %s", p, name))
		}
	}

	if o.positional && len(o.scopes) > 0 {
		b.logger.Warn("combining positional arguments with scoping patterns is not allowed, removing scoping patterns",
			"callable", name, "patterns", o.scopes)
		b.audit.Log(AuditWarn, EventBindWarning, name, "", nil, map[string]interface{}{
			"patterns": o.scopes,
		})
		o.scopes = nil
	}

	entry := &Entry{
		Name:          name,
		Scopes:        o.scopes,
		WithoutPrefix: o.withoutPrefix,
		Positional:    o.positional,
		Group:         o.group,
		Signature:     sig,
	}
	b.registry.Register(entry)
	return entry, nil
}

var anonymousFunc = regexp.MustCompile(`(^|\.)func\d+(\.\d+)*$`)

// funcName derives a canonical name from the qualified runtime name of fn:
// the package path is dropped and method receivers render as Type.Method.
func funcName(fn any) (string, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return "", errors.New(ErrCodeUnnamedCallable, "callable must be a non-nil function")
	}
	f := runtime.FuncForPC(rv.Pointer())
	if f == nil {
		return "", errors.New(ErrCodeUnnamedCallable, "cannot resolve function name")
	}
	full := f.Name()
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	if i := strings.Index(full, "."); i >= 0 {
		full = full[i+1:]
	}
	full = strings.TrimSuffix(full, "-fm")
	if i := strings.Index(full, "["); i >= 0 {
		full = full[:i]
	}
	full = strings.NewReplacer("(*", "", "(", "", ")", "").Replace(full)
	if full == "" || anonymousFunc.MatchString(full) {
		return "", errors.New(ErrCodeUnnamedCallable,
			fmt.Sprintf("cannot derive a canonical name for %s, use WithName", f.Name()))
	}
	return full, nil
}

// typeName derives a canonical name from the constructed type T.
func typeName[T any]() (string, error) {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", errors.New(ErrCodeUnnamedCallable,
			fmt.Sprintf("cannot derive a canonical name for unnamed type %s, use WithName", t))
	}
	return name, nil
}
