// Copyright 2025 The Distkit Authors.
//
// Use of this software is governed by the MIT License
// included in the /LICENSE file.

package faultinject

import "regexp"

// blockedCheck is one suspended checkpoint call: the key value it presented
// and the producer side of its one-shot completion channel. The channel has
// capacity one, so resolving a check whose caller already gave up (context
// cancellation) completes without blocking and the value is simply dropped.
type blockedCheck struct {
	keyValue string
	done     chan error
}

// resolve completes the check, successfully when err is nil. Each
// blockedCheck is resolved exactly once; ownership transfers from the table
// to the resolver at extraction, and resolve must only be called with the
// injector's mutex released.
func (bc blockedCheck) resolve(err error) {
	bc.done <- err
}

// blockedCheckTable maps a key class to its currently blocked checks in
// arrival order. A class with no blocked checks is never retained as a map
// entry. No internal locking; the Injector's mutex guards all access.
type blockedCheckTable map[string][]blockedCheck

// add registers a new blocked check and returns the consumer side of its
// completion channel for the caller to wait on.
func (t blockedCheckTable) add(class, keyValue string) <-chan error {
	bc := blockedCheck{keyValue: keyValue, done: make(chan error, 1)}
	t[class] = append(t[class], bc)
	return bc.done
}

// extractMatching removes and returns every blocked check in class whose key
// value fully matches re, preserving arrival order among the matches; the
// remainder keeps its relative order in place. This is a single stable
// partition pass under the caller's lock, not repeated match-and-erase, so a
// check added between partial removals can never be missed or extracted
// twice.
func (t blockedCheckTable) extractMatching(class string, re *regexp.Regexp) []blockedCheck {
	checks, ok := t[class]
	if !ok {
		return nil
	}
	var matched []blockedCheck
	w := 0
	for _, bc := range checks {
		if re.MatchString(bc.keyValue) {
			matched = append(matched, bc)
		} else {
			checks[w] = bc
			w++
		}
	}
	if w == 0 {
		delete(t, class)
	} else {
		// Zero the tail so extracted channels are not retained by the
		// backing array.
		for i := w; i < len(checks); i++ {
			checks[i] = blockedCheck{}
		}
		t[class] = checks[:w]
	}
	return matched
}

// snapshot returns the key values currently blocked in class, in arrival
// order. Read-only; resolves nothing.
func (t blockedCheckTable) snapshot(class string) []string {
	checks := t[class]
	if len(checks) == 0 {
		return nil
	}
	keys := make([]string, len(checks))
	for i, bc := range checks {
		keys[i] = bc.keyValue
	}
	return keys
}
