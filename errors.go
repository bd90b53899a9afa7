// errors.go: Error codes for ArgBind
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package argbind

import (
	"github.com/agilira/go-errors"
)

// Error codes for ArgBind operations
const (
	ErrCodeMalformedKey       = "ARGBIND_MALFORMED_KEY"
	ErrCodeMissingPositional  = "ARGBIND_MISSING_POSITIONAL"
	ErrCodeTooManyArgs        = "ARGBIND_TOO_MANY_ARGS"
	ErrCodeUnknownArgument    = "ARGBIND_UNKNOWN_ARGUMENT"
	ErrCodeInvalidSignature   = "ARGBIND_INVALID_SIGNATURE"
	ErrCodeUnnamedCallable    = "ARGBIND_UNNAMED_CALLABLE"
	ErrCodeScopeOrder         = "ARGBIND_SCOPE_ORDER"
	ErrCodeUsage              = "ARGBIND_USAGE"
	ErrCodeFileNotFound       = "ARGBIND_FILE_NOT_FOUND"
	ErrCodeIncludeCycle       = "ARGBIND_INCLUDE_CYCLE"
	ErrCodeParseError         = "ARGBIND_PARSE_ERROR"
	ErrCodeWriteError         = "ARGBIND_WRITE_ERROR"
	ErrCodeInvalidConfig      = "ARGBIND_INVALID_CONFIG"
	ErrCodeUnsupportedFormat  = "ARGBIND_UNSUPPORTED_FORMAT"
	ErrCodeInvalidAuditConfig = "ARGBIND_INVALID_AUDIT_CONFIG"
	ErrCodeAuditBackend       = "ARGBIND_AUDIT_BACKEND"
)

// ErrorCode returns the ArgBind error code carried by err, or an empty
// string when err was not produced by this package.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if coder, ok := err.(errors.ErrorCoder); ok {
		return string(coder.ErrorCode())
	}
	return ""
}
