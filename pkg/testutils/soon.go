// Copyright 2025 The Distkit Authors.
//
// Use of this software is governed by the MIT License
// included in the /LICENSE file.

package testutils

import (
	"time"

	"github.com/distkit/faultinject/pkg/util/timeutil"
)

// DefaultSucceedsSoonDuration is the maximum amount of time unittests will
// wait for a condition to become true.
const DefaultSucceedsSoonDuration = 45 * time.Second

// SucceedsSoon fails the test (with t.Fatal) unless the supplied function
// runs without error within DefaultSucceedsSoonDuration. The function is
// invoked immediately at first and then with exponential backoff capped at
// one second.
func SucceedsSoon(t TestFataler, fn func() error) {
	t.Helper()
	deadline := timeutil.Now().Add(DefaultSucceedsSoonDuration)
	var lastErr error
	for wait := time.Millisecond; ; wait *= 2 {
		if lastErr = fn(); lastErr == nil {
			return
		}
		if !timeutil.Now().Before(deadline) {
			break
		}
		if wait > time.Second {
			wait = time.Second
		}
		if timeutil.Until(deadline) < wait {
			wait = timeutil.Until(deadline)
		}
		time.Sleep(wait)
	}
	t.Fatalf("condition failed to evaluate within %s: %v",
		DefaultSucceedsSoonDuration, lastErr)
}
