// Copyright 2025 The Distkit Authors.
//
// Use of this software is governed by the MIT License
// included in the /LICENSE file.

package faultinject

import "regexp"

// fault is one registered fault rule: a compiled key-value pattern, the
// behavior to apply, and how many matches remain before the rule expires.
// Faults are immutable after creation except for countRemaining.
type fault struct {
	// source is the pattern text as registered. RemoveFault compares against
	// it with string equality, not regex-semantic equality.
	source string
	re     *regexp.Regexp
	// countRemaining is decremented on each match; the fault is deleted the
	// instant it reaches zero. Zero at registration means "never expires".
	countRemaining uint64
	behavior       Behavior
}

// faultRegistry maps a key class to its registered faults in FIFO
// registration order. A class with no faults is never retained as a map
// entry. The registry does no locking of its own; the Injector's mutex
// guards all access.
type faultRegistry map[string][]fault

func (r faultRegistry) insert(class string, f fault) {
	r[class] = append(r[class], f)
}

// remove deletes the first fault in class whose registered pattern text is
// exactly patternText and reports whether one was found.
func (r faultRegistry) remove(class, patternText string) bool {
	faults, ok := r[class]
	if !ok {
		return false
	}
	for i := range faults {
		if faults[i].source != patternText {
			continue
		}
		faults = append(faults[:i], faults[i+1:]...)
		if len(faults) == 0 {
			delete(r, class)
		} else {
			r[class] = faults
		}
		return true
	}
	return false
}

// resolve scans class in registration order for the first fault whose
// pattern matches the whole of keyValue. It copies out the behavior,
// decrements a nonzero remaining count, deletes the fault when the count
// hits zero, and returns the copy. The second return value reports whether
// the matched fault expired on this call (for logging). NoOp is returned
// when no class entry exists or nothing matches.
func (r faultRegistry) resolve(class, keyValue string) (Behavior, bool) {
	faults, ok := r[class]
	if !ok {
		return NoOp{}, false
	}
	for i := range faults {
		if !faults[i].re.MatchString(keyValue) {
			continue
		}
		behavior := faults[i].behavior
		if faults[i].countRemaining > 0 {
			faults[i].countRemaining--
			if faults[i].countRemaining == 0 {
				faults = append(faults[:i], faults[i+1:]...)
				if len(faults) == 0 {
					delete(r, class)
				} else {
					r[class] = faults
				}
				return behavior, true
			}
		}
		return behavior, false
	}
	return NoOp{}, false
}
