// coerce.go: Conversion of command-line tokens into typed values
//
// List, tuple and dict values arrive as one space-delimited token. Dict
// entries are "key=value" pairs whose sides are guessed as literals
// (numbers, booleans, quoted strings, nil, arrays) and otherwise kept as
// raw strings.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/go-errors"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// ParseValue converts raw into a value of typ.
func ParseValue(typ Type, raw string) (any, error) {
	switch typ.Kind {
	case KindList:
		fields := strings.Fields(raw)
		return parseList(typ.Elem, fields)
	case KindTuple:
		fields := strings.Fields(raw)
		if len(fields) != len(typ.Elems) {
			return nil, errors.New(ErrCodeUsage,
				fmt.Sprintf("expected %d values for %s, got %d", len(typ.Elems), typ, len(fields)))
		}
		out := make([]any, len(fields))
		for i, f := range fields {
			v, err := parseScalar(typ.Elems[i], f)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case KindDict:
		return parseDict(raw)
	default:
		return parseScalar(typ.Kind, raw)
	}
}

func parseScalar(kind Kind, raw string) (any, error) {
	switch kind {
	case KindString:
		return raw, nil
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, invalidValue(raw, kind)
		}
		return int(n), nil
	case KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, invalidValue(raw, kind)
		}
		return f, nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, invalidValue(raw, kind)
		}
		return b, nil
	case KindDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, invalidValue(raw, kind)
		}
		return d, nil
	default:
		return GuessLiteral(raw), nil
	}
}

func parseList(elem Kind, fields []string) (any, error) {
	switch elem {
	case KindString:
		return append([]string{}, fields...), nil
	case KindInt:
		out := make([]int, len(fields))
		for i, f := range fields {
			v, err := parseScalar(KindInt, f)
			if err != nil {
				return nil, err
			}
			out[i] = v.(int)
		}
		return out, nil
	case KindFloat:
		out := make([]float64, len(fields))
		for i, f := range fields {
			v, err := parseScalar(KindFloat, f)
			if err != nil {
				return nil, err
			}
			out[i] = v.(float64)
		}
		return out, nil
	case KindBool:
		out := make([]bool, len(fields))
		for i, f := range fields {
			v, err := parseScalar(KindBool, f)
			if err != nil {
				return nil, err
			}
			out[i] = v.(bool)
		}
		return out, nil
	default:
		out := make([]any, len(fields))
		for i, f := range fields {
			v, err := parseScalar(elem, f)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
}

func parseDict(raw string) (map[string]any, error) {
	out := make(map[string]any)
	for _, field := range strings.Fields(raw) {
		k, v, ok := strings.Cut(field, "=")
		if !ok || k == "" {
			return nil, errors.New(ErrCodeUsage,
				fmt.Sprintf("invalid dict entry %q, expected key=value", field))
		}
		out[fmt.Sprint(GuessLiteral(k))] = GuessLiteral(v)
	}
	return out, nil
}

func invalidValue(raw string, kind Kind) error {
	return errors.New(ErrCodeUsage, fmt.Sprintf("invalid %s value %q", kind, raw))
}

// GuessLiteral interprets s as a literal when it is one (42, -1.5, true,
// "quoted", nil, [1, 2], {"a": 1}) and returns s unchanged otherwise.
func GuessLiteral(s string) any {
	tree, err := parser.Parse(s)
	if err != nil {
		return s
	}
	v, ok := literal(tree.Node)
	if !ok {
		return s
	}
	return v
}

func literal(node ast.Node) (any, bool) {
	switch n := node.(type) {
	case *ast.IntegerNode:
		return n.Value, true
	case *ast.FloatNode:
		return n.Value, true
	case *ast.StringNode:
		return n.Value, true
	case *ast.BoolNode:
		return n.Value, true
	case *ast.NilNode:
		return nil, true
	case *ast.IdentifierNode:
		switch n.Value {
		case "True":
			return true, true
		case "False":
			return false, true
		case "None":
			return nil, true
		}
		return nil, false
	case *ast.UnaryNode:
		if n.Operator != "-" {
			return nil, false
		}
		switch inner := n.Node.(type) {
		case *ast.IntegerNode:
			return -inner.Value, true
		case *ast.FloatNode:
			return -inner.Value, true
		}
		return nil, false
	case *ast.ArrayNode:
		out := make([]any, 0, len(n.Nodes))
		for _, item := range n.Nodes {
			v, ok := literal(item)
			if !ok {
				return nil, false
			}
			out = append(out, v)
		}
		return out, true
	case *ast.MapNode:
		out := make(map[string]any, len(n.Pairs))
		for _, p := range n.Pairs {
			pair, ok := p.(*ast.PairNode)
			if !ok {
				return nil, false
			}
			k, ok := literal(pair.Key)
			if !ok {
				return nil, false
			}
			v, ok := literal(pair.Value)
			if !ok {
				return nil, false
			}
			out[fmt.Sprint(k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}

// FormatValue renders v the way ParseValue reads it back: slices
// space-delimited, maps as sorted key=value pairs.
func FormatValue(v any) string {
	if v == nil {
		return ""
	}
	if d, ok := v.(time.Duration); ok {
		return d.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = FormatValue(rv.Index(i).Interface())
		}
		return strings.Join(parts, " ")
	case reflect.Map:
		parts := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			parts = append(parts, fmt.Sprintf("%v=%v", iter.Key().Interface(), FormatValue(iter.Value().Interface())))
		}
		sort.Strings(parts)
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(v)
	}
}
