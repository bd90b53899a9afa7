// params.go: Parameter descriptors for bound callables
//
// Go has no runtime access to parameter names or default values, so every
// bound callable carries an explicit Signature describing its parameters.
// The descriptor drives both flag synthesis and call-time injection.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/agilira/go-errors"
)

// Kind is the coarse value category of a parameter.
type Kind uint8

const (
	KindAny Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindDuration
	KindList
	KindTuple
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindDuration:
		return "duration"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindDict:
		return "dict"
	default:
		return "any"
	}
}

// Type describes the declared type of a parameter. Elem is the element kind
// of a list, Elems the positional element kinds of a tuple.
type Type struct {
	Kind  Kind
	Elem  Kind
	Elems []Kind
}

// Predefined scalar types
var (
	TypeAny      = Type{Kind: KindAny}
	TypeString   = Type{Kind: KindString}
	TypeInt      = Type{Kind: KindInt}
	TypeFloat    = Type{Kind: KindFloat}
	TypeBool     = Type{Kind: KindBool}
	TypeDuration = Type{Kind: KindDuration}
	TypeDict     = Type{Kind: KindDict}
)

// ListOf returns a list type whose elements are coerced uniformly to elem.
func ListOf(elem Kind) Type {
	return Type{Kind: KindList, Elem: elem}
}

// TupleOf returns a tuple type whose elements are coerced by position.
func TupleOf(elems ...Kind) Type {
	copied := make([]Kind, len(elems))
	copy(copied, elems)
	return Type{Kind: KindTuple, Elems: copied}
}

// IsZero reports whether no type was declared.
func (t Type) IsZero() bool {
	return t.Kind == KindAny && t.Elem == KindAny && len(t.Elems) == 0
}

func (t Type) String() string {
	switch t.Kind {
	case KindList:
		return "list[" + t.Elem.String() + "]"
	case KindTuple:
		parts := make([]string, len(t.Elems))
		for i, k := range t.Elems {
			parts[i] = k.String()
		}
		return "tuple[" + strings.Join(parts, ",") + "]"
	default:
		return t.Kind.String()
	}
}

// TypeOf infers a Type from the dynamic type of v.
func TypeOf(v any) Type {
	if v == nil {
		return TypeAny
	}
	if _, ok := v.(time.Duration); ok {
		return TypeDuration
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		elem := rv.Type().Elem()
		if elem.Kind() != reflect.Interface {
			return ListOf(kindOfType(elem))
		}
		kinds := make([]Kind, rv.Len())
		uniform := true
		for i := 0; i < rv.Len(); i++ {
			kinds[i] = TypeOf(rv.Index(i).Interface()).Kind
			if i > 0 && kinds[i] != kinds[0] {
				uniform = false
			}
		}
		if uniform && len(kinds) > 0 {
			return ListOf(kinds[0])
		}
		if len(kinds) == 0 {
			return ListOf(KindString)
		}
		return TupleOf(kinds...)
	case reflect.Map:
		return TypeDict
	default:
		return Type{Kind: kindOfType(rv.Type())}
	}
}

func kindOfType(t reflect.Type) Kind {
	if t == reflect.TypeOf(time.Duration(0)) {
		return KindDuration
	}
	switch t.Kind() {
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.Map:
		return KindDict
	default:
		return KindAny
	}
}

// Param describes one declared parameter of a bound callable.
type Param struct {
	Name       string
	Default    any
	HasDefault bool
	Type       Type
	Help       string
}

// Arg declares a parameter with a default value. The type is inferred from
// the default.
func Arg(name string, def any) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

// ArgOf declares a parameter with a default value and an explicit type.
func ArgOf(name string, def any, typ Type) Param {
	return Param{Name: name, Default: def, HasDefault: true, Type: typ}
}

// Required declares a parameter without a default. It is only bindable when
// the callable is registered in positional mode.
func Required(name string) Param {
	return Param{Name: name}
}

// RequiredOf declares a typed parameter without a default.
func RequiredOf(name string, typ Type) Param {
	return Param{Name: name, Type: typ}
}

// WithHelp attaches help text shown next to the generated flag.
func (p Param) WithHelp(text string) Param {
	p.Help = text
	return p
}

// ResolvedType returns the declared type, or the type of the default when
// none was declared.
func (p Param) ResolvedType() Type {
	if !p.Type.IsZero() {
		return p.Type
	}
	if p.HasDefault {
		return TypeOf(p.Default)
	}
	return TypeString
}

// Signature is the explicit parameter list of a bound callable.
type Signature struct {
	Name   string
	Doc    string
	Params []Param
}

// NewSignature builds a Signature for name with params in declaration order.
// An empty name lets the registry derive one from the function itself.
func NewSignature(name string, params ...Param) Signature {
	return Signature{Name: name, Params: params}
}

// WithDoc sets the description used as help text for the callable.
func (s Signature) WithDoc(doc string) Signature {
	s.Doc = doc
	return s
}

// Bindable returns the parameters eligible for injection, in declaration
// order: those with a default, or all of them in positional mode.
func (s Signature) Bindable(positional bool) []Param {
	out := make([]Param, 0, len(s.Params))
	for _, p := range s.Params {
		if p.HasDefault || positional {
			out = append(out, p)
		}
	}
	return out
}

// Index returns the declaration position of name, or -1.
func (s Signature) Index(name string) int {
	for i, p := range s.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (s Signature) validate() error {
	seen := make(map[string]struct{}, len(s.Params))
	for i, p := range s.Params {
		if p.Name == "" {
			return errors.New(ErrCodeInvalidSignature,
				fmt.Sprintf("parameter %d of %q has no name", i, s.Name))
		}
		if strings.ContainsAny(p.Name, "/. ") {
			return errors.New(ErrCodeInvalidSignature,
				fmt.Sprintf("parameter name %q of %q contains a reserved character", p.Name, s.Name))
		}
		if _, dup := seen[p.Name]; dup {
			return errors.New(ErrCodeInvalidSignature,
				fmt.Sprintf("duplicate parameter %q in %q", p.Name, s.Name))
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

func (s Signature) clone() Signature {
	params := make([]Param, len(s.Params))
	copy(params, s.Params)
	s.Params = params
	return s
}
