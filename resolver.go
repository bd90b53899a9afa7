// resolver.go: Per-call resolution of bound parameters
//
// Order of precedence for every declared parameter:
//
//	explicit keyword > explicit positional > active mapping > default
//
// A positional argument that displaces a mapped value still marks the
// mapping key as used, with the delivered value.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"context"
	"fmt"
	"strings"

	"github.com/agilira/go-errors"
)

// Kwargs are explicit keyword arguments supplied at a call site.
type Kwargs map[string]any

type resolution struct {
	args  Args
	shown []string
	scope *Scope
}

func (b *Binder) resolve(ctx context.Context, name string, kw Kwargs, pos []any, inject bool) (*resolution, error) {
	entry, ok := b.registry.Lookup(name)
	if !ok {
		return nil, errors.New(ErrCodeInvalidSignature,
			fmt.Sprintf("callable %q is not registered", name))
	}
	params := entry.Signature.Params

	if len(pos) > len(params) {
		return nil, errors.New(ErrCodeTooManyArgs,
			fmt.Sprintf("%s takes %d arguments but %d were given", name, len(params), len(pos)))
	}
	for k := range kw {
		if entry.Signature.Index(k) < 0 {
			return nil, errors.New(ErrCodeUnknownArgument,
				fmt.Sprintf("%s got an unexpected keyword argument %q", name, k))
		}
	}

	scope := emptyScope()
	if inject {
		if s, ok := ScopeFromContext(ctx); ok {
			scope = s
		} else {
			scope = b.Active()
		}
	}

	res := &resolution{args: newArgs(len(params)), scope: scope}
	for i, p := range params {
		if v, ok := kw[p.Name]; ok {
			res.args.set(p.Name, v)
			res.shown = append(res.shown, p.Name)
			continue
		}

		bindable := p.HasDefault || entry.Positional
		key := entry.Key(p.Name)
		mapped, inMapping := scope.Lookup(key)
		inMapping = inMapping && bindable

		switch {
		case i < len(pos):
			res.args.set(p.Name, pos[i])
			if inMapping {
				b.markUsed(entry.Name, scope, key, pos[i])
				res.shown = append(res.shown, p.Name)
			}
		case inMapping:
			res.args.set(p.Name, mapped)
			b.markUsed(entry.Name, scope, key, mapped)
			res.shown = append(res.shown, p.Name)
		case p.HasDefault:
			res.args.set(p.Name, p.Default)
		default:
			return nil, errors.New(ErrCodeMissingPositional,
				fmt.Sprintf("%s missing required argument %q", name, p.Name))
		}
	}

	if inject && (debugFromContext(ctx) || b.debugLevel() != 0 || scope.debug()) {
		fmt.Fprintln(b.config.Output, formatCall(entry.Name, scope.Pattern(), res))
	}
	return res, nil
}

func (b *Binder) markUsed(callable string, scope *Scope, key string, value any) {
	used := JoinKey(scope.Pattern(), key)
	b.usage.Record(used, value)
	b.audit.LogInjection(callable, used, value)
}

// formatCall renders the debug dump of a call:
//
//	name(
//	  # scope = pattern
//	  param : type = value
//	)
func formatCall(name, pattern string, res *resolution) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteString("(\n")
	if pattern != "" {
		fmt.Fprintf(&sb, "  # scope = %s\n", pattern)
	}
	for _, n := range res.shown {
		v := res.args.Get(n)
		fmt.Fprintf(&sb, "  %s : %s = %v\n", n, typeLabel(v), v)
	}
	sb.WriteString(")")
	return sb.String()
}

func typeLabel(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
