// Copyright 2025 The Distkit Authors.
//
// Use of this software is governed by the MIT License
// included in the /LICENSE file.

package faultinject

import (
	"regexp"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInjectionDisabled is returned by every Inject* call on an Injector
	// that was constructed with injection disabled or has been closed.
	ErrInjectionDisabled = errors.New("fault injection is disabled")

	// ErrDestroyed resolves any check still blocked when the Injector is
	// closed. Observing it means a test injected a block fault and never
	// unblocked it.
	ErrDestroyed = errors.New("fault injector destroyed while check was blocked")

	// ErrInvalidPattern marks errors returned when a fault pattern does not
	// compile as a regular expression. Pattern compilation fails fast, at
	// registration or unblock time, never during a check.
	ErrInvalidPattern = errors.New("invalid fault pattern")
)

// compilePattern compiles pattern with full-string match semantics: the
// entire key value must match, not merely contain a match. This keeps key
// values that are prefixes of each other (file paths, most commonly) from
// matching each other's faults.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, errors.Mark(
			errors.Wrapf(err, "fault pattern %q", pattern), ErrInvalidPattern)
	}
	return re, nil
}
