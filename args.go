// args.go: Resolved argument sets delivered to bound callables
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"fmt"
	"time"

	"github.com/agilira/go-errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// Args is the resolved argument set of one call, in declaration order.
//
// Typed accessors convert loosely (a YAML int delivered to a float
// parameter, a "3" string from the environment to an int) and return the
// zero value when the name is absent or the value does not convert.
type Args struct {
	names  []string
	values map[string]any
}

func newArgs(capacity int) Args {
	return Args{
		names:  make([]string, 0, capacity),
		values: make(map[string]any, capacity),
	}
}

func (a *Args) set(name string, value any) {
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = value
}

// Names returns the argument names in declaration order.
func (a Args) Names() []string {
	return append([]string(nil), a.names...)
}

// Len returns the number of arguments.
func (a Args) Len() int {
	return len(a.names)
}

// Has reports whether name was resolved.
func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// Lookup returns the raw value of name.
func (a Args) Lookup(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

// Get returns the raw value of name, or nil.
func (a Args) Get(name string) any {
	return a.values[name]
}

// String returns name as a string.
func (a Args) String(name string) string {
	return cast.ToString(a.values[name])
}

// Int returns name as an int.
func (a Args) Int(name string) int {
	return cast.ToInt(a.values[name])
}

// Float returns name as a float64.
func (a Args) Float(name string) float64 {
	return cast.ToFloat64(a.values[name])
}

// Bool returns name as a bool.
func (a Args) Bool(name string) bool {
	return cast.ToBool(a.values[name])
}

// Duration returns name as a time.Duration. Bare numbers are nanoseconds.
func (a Args) Duration(name string) time.Duration {
	return cast.ToDuration(a.values[name])
}

// Strings returns name as a string slice.
func (a Args) Strings(name string) []string {
	return cast.ToStringSlice(a.values[name])
}

// Ints returns name as an int slice.
func (a Args) Ints(name string) []int {
	return cast.ToIntSlice(a.values[name])
}

// Floats returns name as a float64 slice.
func (a Args) Floats(name string) []float64 {
	items := a.Slice(name)
	if items == nil {
		return nil
	}
	out := make([]float64, len(items))
	for i, item := range items {
		out[i] = cast.ToFloat64(item)
	}
	return out
}

// Slice returns name as a []any, converting typed slices.
func (a Args) Slice(name string) []any {
	v := a.values[name]
	if v == nil {
		return nil
	}
	switch t := v.(type) {
	case []any:
		return append([]any(nil), t...)
	case []string:
		return toAnySlice(t)
	case []int:
		return toAnySlice(t)
	case []float64:
		return toAnySlice(t)
	case []bool:
		return toAnySlice(t)
	}
	if items, err := cast.ToSliceE(v); err == nil {
		return items
	}
	return nil
}

// Dict returns name as a map with string keys.
func (a Args) Dict(name string) map[string]any {
	return cast.ToStringMap(a.values[name])
}

// Map returns the arguments as a mapping from parameter name to value.
func (a Args) Map() Mapping {
	out := make(Mapping, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// Decode copies the arguments into the struct pointed to by out. Fields are
// matched by their `arg` tag or case-insensitively by name; values convert
// weakly, and duration strings decode into time.Duration fields.
func (a Args) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "arg",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return errors.Wrap(err, ErrCodeInvalidConfig, "cannot decode arguments")
	}
	if err := decoder.Decode(map[string]any(a.Map())); err != nil {
		return errors.Wrap(err, ErrCodeInvalidConfig,
			fmt.Sprintf("cannot decode arguments into %T", out))
	}
	return nil
}

func toAnySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
