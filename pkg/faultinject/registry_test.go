// Copyright 2025 The Distkit Authors.
//
// Use of this software is governed by the MIT License
// included in the /LICENSE file.

package faultinject

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func mustFault(t *testing.T, pattern string, b Behavior, count uint64) fault {
	t.Helper()
	re, err := compilePattern(pattern)
	require.NoError(t, err)
	return fault{source: pattern, re: re, countRemaining: count, behavior: b}
}

func TestRegistryFullStringMatch(t *testing.T) {
	testCases := []struct {
		pattern  string
		keyValue string
		match    bool
	}{
		{"^a$", "a", true},
		{"^a$", "ab", false},
		// Even without anchors the entire key value must match.
		{"a", "a", true},
		{"a", "ab", false},
		{"a", "ba", false},
		{"a.*", "abc", true},
		{"a.*", "xabc", false},
		{"read|write", "read", true},
		{"read|write", "reader", false},
		{"/data/.*", "/data/nodes/1", true},
		{"/data/.*", "/backup/data/nodes/1", false},
	}
	for _, tc := range testCases {
		r := make(faultRegistry)
		r.insert("op", mustFault(t, tc.pattern, Error{Err: errors.New("boom")}, 0))
		b, _ := r.resolve("op", tc.keyValue)
		if tc.match {
			require.IsType(t, Error{}, b, "pattern %q vs key %q", tc.pattern, tc.keyValue)
		} else {
			require.IsType(t, NoOp{}, b, "pattern %q vs key %q", tc.pattern, tc.keyValue)
		}
	}
}

func TestRegistryFirstMatchWins(t *testing.T) {
	r := make(faultRegistry)
	errFirst := errors.New("first")
	errSecond := errors.New("second")
	r.insert("op", mustFault(t, "k.*", Error{Err: errFirst}, 0))
	r.insert("op", mustFault(t, "key", Error{Err: errSecond}, 0))

	b, _ := r.resolve("op", "key")
	require.Equal(t, Error{Err: errFirst}, b)
}

func TestRegistryNoopMasksLaterFault(t *testing.T) {
	r := make(faultRegistry)
	r.insert("op", mustFault(t, "healthy", NoOp{}, 0))
	r.insert("op", mustFault(t, ".*", Error{Err: errors.New("boom")}, 0))

	b, _ := r.resolve("op", "healthy")
	require.IsType(t, NoOp{}, b)
	b, _ = r.resolve("op", "anything-else")
	require.IsType(t, Error{}, b)
}

func TestRegistryHitCountExpiry(t *testing.T) {
	r := make(faultRegistry)
	r.insert("op", mustFault(t, "key", Error{Err: errors.New("boom")}, 3))
	r.insert("op", mustFault(t, ".*", Block{}, 0))

	// Exactly the first three matches observe the counted fault.
	for i := 0; i < 3; i++ {
		b, expired := r.resolve("op", "key")
		require.IsType(t, Error{}, b, "hit %d", i)
		require.Equal(t, i == 2, expired, "hit %d", i)
	}
	// The fourth falls through to the next fault in the class.
	b, _ := r.resolve("op", "key")
	require.IsType(t, Block{}, b)
}

func TestRegistryZeroCountNeverExpires(t *testing.T) {
	r := make(faultRegistry)
	r.insert("op", mustFault(t, "key", Error{Err: errors.New("boom")}, 0))
	for i := 0; i < 100; i++ {
		b, expired := r.resolve("op", "key")
		require.IsType(t, Error{}, b)
		require.False(t, expired)
	}
}

func TestRegistryResolveUnknownClass(t *testing.T) {
	r := make(faultRegistry)
	b, expired := r.resolve("nope", "key")
	require.IsType(t, NoOp{}, b)
	require.False(t, expired)
}

func TestRegistryRemoveBySourceText(t *testing.T) {
	r := make(faultRegistry)
	r.insert("op", mustFault(t, "a+", Error{Err: errors.New("boom")}, 0))

	// "a+" and "aa*" are regex-equivalent but textually distinct; removal
	// compares source text only.
	require.False(t, r.remove("op", "aa*"))
	require.True(t, r.remove("op", "a+"))
	require.False(t, r.remove("op", "a+"))
}

func TestRegistryPrunesEmptyClass(t *testing.T) {
	r := make(faultRegistry)

	r.insert("op", mustFault(t, "key", Error{Err: errors.New("boom")}, 1))
	_, expired := r.resolve("op", "key")
	require.True(t, expired)
	_, ok := r["op"]
	require.False(t, ok, "class entry must be pruned on expiry")

	r.insert("op", mustFault(t, "key", Block{}, 0))
	require.True(t, r.remove("op", "key"))
	_, ok = r["op"]
	require.False(t, ok, "class entry must be pruned on removal")
}
