// Package argbind binds function parameters to a flat, scoped configuration
// namespace so that a program's tunable values can be set from the command
// line or an argument file without threading them through every call site.
//
// # Binding
//
// Go functions carry no parameter names or defaults at runtime, so each
// bound callable declares an explicit Signature. The callable receives its
// resolved arguments as Args:
//
//	var train = argbind.MustBind(
//		argbind.NewSignature("train",
//			argbind.Arg("lr", 1e-3),
//			argbind.Arg("epochs", 10).WithHelp("Number of passes over the data."),
//		),
//		func(a argbind.Args) float64 {
//			return a.Float("lr") * float64(a.Int("epochs"))
//		},
//		argbind.WithScopes("pretrain"),
//	)
//
// Every parameter with a default is exposed under the key "<name>.<param>"
// ("train.lr"). Options change the key layout: WithoutPrefix drops the
// callable name, Positional also exposes parameters without a default,
// WithScopes declares extra patterns ("pretrain/train.lr"), and InGroup
// hides the callable from surfaces built for other groups.
//
// # Scopes
//
// A call resolves every parameter it was not explicitly given from the
// active scope: the projection of a flat Mapping onto one pattern. Scopes
// nest and are strictly LIFO:
//
//	args := argbind.ParseArgsOrExit()
//	err := argbind.WithScope(args, "", func() error {
//		_, err := train.Call(ctx)
//		return err
//	})
//
// The pattern "pretrain" selects "pretrain/train.lr" over "train.lr".
// Goroutines that cannot share the ambient stack carry a scope in their
// context instead (ContextWithScope).
//
// Precedence is explicit keyword, explicit positional, active mapping,
// then declared default. Every mapped value delivered to a call is recorded
// and can be saved with SaveUsed for exact reproduction of a run.
//
// # Command line and files
//
// ParseArgs synthesizes a pflag set from the registry, one flag per key,
// and reconciles it with an argument file named by --args.load. Explicit
// command-line input always wins; scoped keys inherit top-level values they
// were not given. Argument files are YAML, JSON (with comments) or TOML and
// support two directives: "$include" merges other files underneath the
// document, "$vars" defines $NAME substitutions that shadow the environment.
//
// # Debugging and audit
//
// With args.debug set, each injected call prints its name, scope and
// resolved values. An optional audit trail records scope changes, injections
// and file activity to SQLite or JSONL (see AuditConfig). Runtime settings
// can be read from ARGBIND_* environment variables (LoadConfigFromEnv).
//
// Errors carry codes from github.com/agilira/go-errors; use ErrorCode to
// inspect them.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package argbind
