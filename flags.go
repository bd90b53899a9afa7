// flags.go: Command-line surface generated from the registry
//
// Every bindable parameter of every registered callable becomes a flag
// named after its configuration key (--train.lr), plus one hidden flag per
// declared scope pattern (--val/train.lr). Parsing reconciles the command
// line with an optional argument file (--args.load) so that explicit input
// always wins, and scoped keys inherit top-level values they were not given.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agilira/go-errors"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/pflag"
)

// ErrHelp is returned by Parse when -h or --help was requested.
var ErrHelp = pflag.ErrHelp

// ParseOption configures a Surface.
type ParseOption func(*parseOptions)

type parseOptions struct {
	group     string
	extraArgs bool
}

// AllowExtraArgs keeps positional arguments beyond the generated ones
// instead of rejecting them. Surface.Args returns them after Parse.
func AllowExtraArgs() ParseOption {
	return func(o *parseOptions) {
		o.extraArgs = true
	}
}

// ForGroup restricts the surface to ungrouped callables and those
// registered with InGroup(group).
func ForGroup(group string) ParseOption {
	return func(o *parseOptions) {
		o.group = group
	}
}

// argValue is the pflag.Value of one generated flag.
type argValue struct {
	typ   Type
	value any
}

func (v *argValue) String() string {
	return FormatValue(v.value)
}

func (v *argValue) Set(s string) error {
	parsed, err := ParseValue(v.typ, s)
	if err != nil {
		return err
	}
	v.value = parsed
	return nil
}

func (v *argValue) Type() string {
	return v.typ.String()
}

type positionalArg struct {
	key string
	typ Type
}

type helpSection struct {
	title       string
	description string
	flags       []string
}

// Surface is the flag set synthesized from a Binder's registry.
type Surface struct {
	binder      *Binder
	fs          *pflag.FlagSet
	values      map[string]*argValue
	topLevel    []string
	scoped      []string
	positionals []positionalArg
	sections    []helpSection
	extraArgs   bool
	extra       []string

	save  *string
	load  *string
	debug *int
}

// NewSurface builds the flag set for the callables registered so far.
func (b *Binder) NewSurface(opts ...ParseOption) (*Surface, error) {
	o := parseOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	fs := pflag.NewFlagSet(b.config.ProgramName, pflag.ContinueOnError)
	fs.SortFlags = false
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	s := &Surface{
		binder:    b,
		fs:        fs,
		values:    make(map[string]*argValue),
		extraArgs: o.extraArgs,
	}
	s.save = fs.String(KeySave, "", "Path to save all arguments used to run script to.")
	s.load = fs.String(KeyLoad, "", "Path to load arguments from, stored as a .yml file.")
	s.debug = fs.Int(KeyDebug, 0, "Print arguments as they are passed to each function.")

	for _, entry := range b.registry.Entries() {
		if !entry.InGroup(o.group) {
			continue
		}
		section := helpSection{
			title:       "Generated arguments for function " + entry.Name,
			description: s.describe(entry),
		}

		for _, p := range entry.Bindable() {
			key := entry.Key(p.Name)
			typ := p.ResolvedType()

			if !p.HasDefault {
				s.positionals = append(s.positionals, positionalArg{key: key, typ: typ})
				continue
			}

			if s.addFlag(key, typ, p.Default, wrap(p.Help, b.config.HelpWidth), false) {
				section.flags = append(section.flags, key)
				s.topLevel = append(s.topLevel, key)
			}
			for _, pattern := range entry.Scopes {
				scopedKey := JoinKey(pattern, key)
				if s.addFlag(scopedKey, typ, p.Default, "", true) {
					s.scoped = append(s.scoped, scopedKey)
				}
			}
		}
		s.sections = append(s.sections, section)
	}
	return s, nil
}

// addFlag defines one flag. Keys shared between unprefixed callables are
// defined once; later definitions report false.
func (s *Surface) addFlag(name string, typ Type, def any, usage string, hidden bool) bool {
	if s.fs.Lookup(name) != nil {
		return false
	}
	value := &argValue{typ: typ, value: def}
	flag := s.fs.VarPF(value, name, "", usage)
	if typ.Kind == KindBool {
		flag.NoOptDefVal = "true"
	}
	if hidden {
		_ = s.fs.MarkHidden(name)
	}
	s.values[name] = value
	return true
}

func (s *Surface) describe(entry *Entry) string {
	desc := entry.Signature.Doc
	if len(entry.Scopes) > 0 {
		example := entry.Scopes[0] + scopeSeparator
		for _, p := range entry.Bindable() {
			if p.HasDefault {
				example += entry.Key(p.Name)
				break
			}
		}
		hint := fmt.Sprintf("Additional scope patterns: %s. Use these by prefacing any of the args below with one of these patterns. For example: --%s VALUE.",
			strings.Join(entry.Scopes, ", "), example)
		desc = strings.TrimSpace(desc + " " + hint)
	}
	return wrap(desc, s.binder.config.HelpWidth)
}

func wrap(text string, width int) string {
	if text == "" {
		return ""
	}
	return wordwrap.WrapString(text, uint(width))
}

// FlagSet exposes the underlying flag set. Flags defined on it before Parse
// take part in parsing and in the returned mapping.
func (s *Surface) FlagSet() *pflag.FlagSet {
	return s.fs
}

// Args returns the positional arguments left over by Parse when the surface
// was built with AllowExtraArgs.
func (s *Surface) Args() []string {
	return append([]string(nil), s.extra...)
}

func isMetaKey(name string) bool {
	return name == KeySave || name == KeyLoad || name == KeyDebug
}

// Parse parses args (without the program name) and returns the reconciled
// flat mapping, including the args.load, args.save and args.debug keys.
// Flags added to FlagSet by the caller are returned under their own names
// as strings. A Surface parses once; build a new one for each command line.
func (s *Surface) Parse(args []string) (Mapping, error) {
	if s.fs.Parsed() {
		return nil, errors.New(ErrCodeUsage, "surface already parsed")
	}
	if err := s.fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil, ErrHelp
		}
		return nil, errors.Wrap(err, ErrCodeUsage, "invalid command line")
	}

	explicit := map[string]bool{KeySave: true, KeyLoad: true}
	s.fs.Visit(func(f *pflag.Flag) {
		explicit[f.Name] = true
	})

	out := make(Mapping, len(s.values)+3)
	for name, value := range s.values {
		out[name] = value.value
	}
	s.fs.VisitAll(func(f *pflag.Flag) {
		if _, generated := s.values[f.Name]; generated || isMetaKey(f.Name) {
			return
		}
		out[f.Name] = f.Value.String()
	})

	rest := s.fs.Args()
	if len(rest) > len(s.positionals) {
		if !s.extraArgs {
			return nil, errors.New(ErrCodeTooManyArgs,
				fmt.Sprintf("unrecognized arguments: %s", strings.Join(rest[len(s.positionals):], " ")))
		}
		s.extra = append([]string(nil), rest[len(s.positionals):]...)
	}
	for i, pa := range s.positionals {
		if i >= len(rest) {
			return nil, errors.New(ErrCodeMissingPositional,
				fmt.Sprintf("missing required positional argument %q", pa.key))
		}
		v, err := ParseValue(pa.typ, rest[i])
		if err != nil {
			return nil, errors.Wrap(err, ErrCodeUsage,
				fmt.Sprintf("invalid value for positional argument %q", pa.key))
		}
		out[pa.key] = v
		explicit[pa.key] = true
	}

	debug := *s.debug
	debugSet := explicit[KeyDebug]

	// Scoped flags left alone follow their top-level key.
	for _, key := range s.scoped {
		if !explicit[key] {
			out[key] = out[unscoped(key)]
		}
	}

	if *s.load != "" {
		loaded, err := s.binder.LoadArgs(*s.load)
		if err != nil {
			return nil, err
		}
		if v, ok := loaded[KeyDebug]; ok && !debugSet {
			if truthy(v) {
				debug = 1
			}
		}
		delete(loaded, KeyDebug)

		for k, v := range loaded {
			if !explicit[k] {
				out[k] = v
			}
		}
		for _, key := range s.scoped {
			if _, inFile := loaded[key]; inFile || explicit[key] {
				continue
			}
			if _, parentInFile := loaded[unscoped(key)]; parentInFile {
				out[key] = out[unscoped(key)]
			}
		}
	}

	// Explicit top-level values reach scoped variants that were not given.
	for _, key := range s.scoped {
		parent := unscoped(key)
		if explicit[parent] && !explicit[key] {
			out[key] = out[parent]
		}
	}

	if *s.save != "" {
		if err := s.binder.DumpArgs(out, *s.save); err != nil {
			return nil, err
		}
	}

	out[KeyLoad] = *s.load
	out[KeySave] = *s.save
	out[KeyDebug] = debug
	return out, nil
}

func unscoped(key string) string {
	if _, rest, err := SplitKey(key); err == nil {
		return rest
	}
	return key
}

// Usage renders the help text: the meta flags, then one section per
// callable. Hidden scoped flags are left out.
func (s *Surface) Usage() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage: %s [flags]", s.fs.Name())
	for _, pa := range s.positionals {
		fmt.Fprintf(&sb, " %s", pa.key)
	}
	sb.WriteString("\n")

	if len(s.positionals) > 0 {
		sb.WriteString("\nPositional arguments:\n")
		for _, pa := range s.positionals {
			fmt.Fprintf(&sb, "  %s %s\n", pa.key, pa.typ)
		}
	}

	sb.WriteString("\nFlags:\n")
	sb.WriteString(s.subset(KeySave, KeyLoad, KeyDebug).FlagUsages())

	for _, section := range s.sections {
		fmt.Fprintf(&sb, "\n%s:\n", section.title)
		if section.description != "" {
			sb.WriteString("  ")
			sb.WriteString(strings.ReplaceAll(section.description, "\n", "\n  "))
			sb.WriteString("\n\n")
		}
		sb.WriteString(s.subset(section.flags...).FlagUsages())
	}
	return sb.String()
}

func (s *Surface) subset(names ...string) *pflag.FlagSet {
	sub := pflag.NewFlagSet(s.fs.Name(), pflag.ContinueOnError)
	sub.SortFlags = false
	for _, name := range names {
		if f := s.fs.Lookup(name); f != nil {
			sub.AddFlag(f)
		}
	}
	return sub
}

// ParseArgs builds a surface and parses args with it.
func (b *Binder) ParseArgs(args []string, opts ...ParseOption) (Mapping, error) {
	s, err := b.NewSurface(opts...)
	if err != nil {
		return nil, err
	}
	return s.Parse(args)
}

// ParseArgsOrExit parses os.Args. On --help it prints usage and exits 0;
// on a usage error it prints the error and usage to stderr and exits 2.
func (b *Binder) ParseArgsOrExit(opts ...ParseOption) Mapping {
	s, err := b.NewSurface(opts...)
	if err == nil {
		var m Mapping
		m, err = s.Parse(os.Args[1:])
		if err == nil {
			return m
		}
		if err == ErrHelp {
			fmt.Fprint(b.config.Output, s.Usage())
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n\n%s", err, s.Usage())
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(2)
	return nil
}

// ParseArgs parses args against the default Binder's registry.
func ParseArgs(args []string, opts ...ParseOption) (Mapping, error) {
	return Default().ParseArgs(args, opts...)
}

// ParseArgsOrExit parses os.Args against the default Binder's registry.
func ParseArgsOrExit(opts ...ParseOption) Mapping {
	return Default().ParseArgsOrExit(opts...)
}
