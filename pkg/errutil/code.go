// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package errutil

import (
	"fmt"

	"github.com/samber/oops"
)

// Code returns the error code carried by err, or "" when err is not an oops
// error or has no code. oops resolves the deepest non-empty code in the chain.
func Code(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	if s, ok := code.(string); ok {
		return s
	}
	return fmt.Sprint(code)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return code != "" && Code(err) == code
}

// Value returns a single context value attached with oops.With.
func Value(err error, key string) (any, bool) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil, false
	}
	v, ok := oopsErr.Context()[key]
	return v, ok
}
