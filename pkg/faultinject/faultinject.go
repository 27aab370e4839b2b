// Copyright 2025 The Distkit Authors.
//
// Use of this software is governed by the MIT License
// included in the /LICENSE file.

package faultinject

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/distkit/faultinject/pkg/util/syncutil"
	"github.com/distkit/faultinject/pkg/util/timeutil"
)

// An Injector is a process-wide fault-injection facility, explicitly
// constructed and explicitly owned; call sites receive it by reference rather
// than through an ambient singleton. Production code calls Check at named
// checkpoints; tests register faults that make matching checkpoints fail,
// delay, block, or kill the process.
//
// All mutable state lives behind a single RWMutex. The mutex is held only
// for pure state mutation (matching, inserting, removing, extracting) and
// never while a completion is resolved, so a resumed caller can re-enter the
// Injector without deadlocking.
type Injector struct {
	// enabled is set at construction. When false, checks pass through with a
	// single branch and registration fails with ErrInjectionDisabled.
	enabled bool
	logger  *slog.Logger
	killFn  func()

	mu struct {
		syncutil.RWMutex
		closed  bool
		faults  faultRegistry
		blocked blockedCheckTable
	}
}

// New constructs an Injector. The enabled flag is the facility-wide switch:
// a disabled Injector rejects every registration call, and since no fault
// can ever be registered, its checks always pass.
func New(enabled bool, opts ...Option) *Injector {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	fi := &Injector{
		enabled: enabled,
		logger:  cfg.logger,
		killFn:  cfg.killFn,
	}
	fi.mu.faults = make(faultRegistry)
	fi.mu.blocked = make(blockedCheckTable)
	return fi
}

// Close tears the Injector down, resolving every still-blocked check with
// ErrDestroyed. A nonzero count is logged as a warning: it means a test
// injected a block fault and never unblocked it. Close is idempotent, and a
// closed Injector rejects further registration.
func (fi *Injector) Close() {
	fi.mu.Lock()
	fi.mu.closed = true
	fi.mu.Unlock()

	if n := fi.unblockAllImpl(ErrDestroyed); n > 0 {
		fi.logger.Warn("fault injector closed with blocked checks still pending",
			"count", n)
	}
}

// closedErrCh reads as an immediately successful outcome: receiving from a
// closed chan error yields nil.
var closedErrCh = func() chan error {
	ch := make(chan error)
	close(ch)
	return ch
}()

// CheckAsync evaluates the checkpoint (class, keyValue) and returns a
// channel carrying the outcome: nil when the check passes, the injected
// error when it fails. The calling goroutine never blocks; Block and Delay
// outcomes resolve on the returned channel when the fault is unblocked or
// the delay elapses. ctx bounds only a Delay wait; a blocked check is
// resolved solely by unblock calls or Close.
func (fi *Injector) CheckAsync(ctx context.Context, class, keyValue string) <-chan error {
	if !fi.enabled {
		return closedErrCh
	}
	switch b := fi.resolveFault(class, keyValue).(type) {
	case NoOp:
		return closedErrCh
	case Error:
		fi.logger.Debug("error fault hit", "class", class, "key", keyValue)
		ch := make(chan error, 1)
		ch <- b.Err
		return ch
	case Block:
		fi.logger.Debug("block fault hit", "class", class, "key", keyValue)
		return fi.addBlockedCheck(class, keyValue)
	case Delay:
		fi.logger.Debug("delay fault hit", "class", class, "key", keyValue)
		ch := make(chan error, 1)
		go func() {
			var timer timeutil.Timer
			defer timer.Stop()
			timer.Reset(b.Duration)
			select {
			case <-timer.C:
				timer.Read = true
				ch <- b.Err
			case <-ctx.Done():
				ch <- ctx.Err()
			}
		}()
		return ch
	case Kill:
		fi.logger.Debug("kill fault hit", "class", class, "key", keyValue)
		fi.killFn()
		// Reachable only when the kill function was overridden and returned.
		return closedErrCh
	default:
		panic(errors.AssertionFailedf("unhandled fault behavior %T", b))
	}
}

// Check evaluates the checkpoint and waits for the outcome. It returns nil
// when the check passes, the injected error when it fails, and ctx.Err()
// when the context is done first. A blocked check abandoned through context
// cancellation is still resolved, and discarded, by a later unblock or by
// Close.
func (fi *Injector) Check(ctx context.Context, class, keyValue string) error {
	if !fi.enabled {
		return nil
	}
	select {
	case err := <-fi.CheckAsync(ctx, class, keyValue):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InjectNoop registers a fault that makes matching checks pass explicitly.
// Useful for masking a later fault in the same class for specific key
// values: the first matching fault in registration order wins.
func (fi *Injector) InjectNoop(class, pattern string, count uint64) error {
	fi.logger.Info("inject fault", "kind", NoOp{}.kind(),
		"class", class, "pattern", pattern, "count", count)
	return fi.injectFault(class, pattern, NoOp{}, count)
}

// InjectError makes the first count checks in class whose key value fully
// matches pattern fail with err. A count of zero keeps the fault active
// until it is removed.
func (fi *Injector) InjectError(class, pattern string, err error, count uint64) error {
	fi.logger.Info("inject fault", "kind", Error{}.kind(),
		"class", class, "pattern", pattern, "count", count)
	return fi.injectFault(class, pattern, Error{Err: err}, count)
}

// InjectBlock makes matching checks block until an unblock call or Close
// resolves them.
func (fi *Injector) InjectBlock(class, pattern string, count uint64) error {
	fi.logger.Info("inject fault", "kind", Block{}.kind(),
		"class", class, "pattern", pattern, "count", count)
	return fi.injectFault(class, pattern, Block{}, count)
}

// InjectDelay makes matching checks pause for d and then pass.
func (fi *Injector) InjectDelay(class, pattern string, d time.Duration, count uint64) error {
	fi.logger.Info("inject fault", "kind", Delay{}.kind(),
		"class", class, "pattern", pattern, "count", count)
	return fi.injectFault(class, pattern, Delay{Duration: d}, count)
}

// InjectDelayedError makes matching checks pause for d and then fail with
// err.
func (fi *Injector) InjectDelayedError(
	class, pattern string, d time.Duration, err error, count uint64,
) error {
	fi.logger.Info("inject fault", "kind", Delay{}.kind(),
		"class", class, "pattern", pattern, "count", count)
	return fi.injectFault(class, pattern, Delay{Duration: d, Err: err}, count)
}

// InjectKill makes matching checks abort the process (or invoke the
// configured kill function).
func (fi *Injector) InjectKill(class, pattern string, count uint64) error {
	fi.logger.Info("inject fault", "kind", Kill{}.kind(),
		"class", class, "pattern", pattern, "count", count)
	return fi.injectFault(class, pattern, Kill{}, count)
}

// RemoveFault removes the first fault in class that was registered with
// exactly pattern, compared as text rather than by regex equivalence, and
// reports whether one was removed. Removing the same pattern twice returns
// true then false.
func (fi *Injector) RemoveFault(class, pattern string) bool {
	fi.mu.Lock()
	found := fi.mu.faults.remove(class, pattern)
	fi.mu.Unlock()
	if found {
		fi.logger.Info("removed fault", "class", class, "pattern", pattern)
	} else {
		fi.logger.Debug("remove fault found no match", "class", class, "pattern", pattern)
	}
	return found
}

// Unblock resolves every blocked check in class whose key value fully
// matches pattern, resuming the suspended callers successfully. It returns
// the number of checks resolved. Blocked checks in the class that do not
// match remain blocked.
func (fi *Injector) Unblock(class, pattern string) (int, error) {
	return fi.unblock(class, pattern, nil)
}

// UnblockWithError is Unblock with the resumed checks failing with err.
func (fi *Injector) UnblockWithError(class, pattern string, err error) (int, error) {
	return fi.unblock(class, pattern, err)
}

// UnblockAll resolves every blocked check in every class successfully and
// returns the number resolved.
func (fi *Injector) UnblockAll() int {
	return fi.unblockAllImpl(nil)
}

// UnblockAllWithError resolves every blocked check in every class with err
// and returns the number resolved.
func (fi *Injector) UnblockAllWithError(err error) int {
	return fi.unblockAllImpl(err)
}

// BlockedFaults returns the key values of the checks currently blocked in
// class, in the order they blocked.
func (fi *Injector) BlockedFaults(class string) []string {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return fi.mu.blocked.snapshot(class)
}

// WaitUntilBlocked polls at millisecond granularity until at least one check
// is blocked in class or timeout elapses, and reports which happened. It is
// advisory only: a check can block and be resolved between polls, and
// callers synchronizing with an asynchronous producer of a blocked check
// must treat a true result as a hint, not a proof.
func (fi *Injector) WaitUntilBlocked(ctx context.Context, class string, timeout time.Duration) bool {
	deadline := timeutil.Now().Add(timeout)
	var timer timeutil.Timer
	defer timer.Stop()
	for len(fi.BlockedFaults(class)) == 0 {
		if !timeutil.Now().Before(deadline) {
			return false
		}
		timer.Reset(time.Millisecond)
		select {
		case <-timer.C:
			timer.Read = true
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (fi *Injector) injectFault(class, pattern string, b Behavior, count uint64) error {
	if !fi.enabled {
		return ErrInjectionDisabled
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return err
	}
	fi.mu.Lock()
	defer fi.mu.Unlock()
	if fi.mu.closed {
		return ErrInjectionDisabled
	}
	fi.mu.faults.insert(class, fault{
		source:         pattern,
		re:             re,
		countRemaining: count,
		behavior:       b,
	})
	return nil
}

// resolveFault runs the registry lookup for one check under the write lock;
// matching decrements hit counts and may expire the matched fault.
func (fi *Injector) resolveFault(class, keyValue string) Behavior {
	fi.mu.Lock()
	behavior, expired := fi.mu.faults.resolve(class, keyValue)
	fi.mu.Unlock()
	if expired {
		fi.logger.Debug("fault expired", "class", class, "key", keyValue)
	}
	return behavior
}

func (fi *Injector) addBlockedCheck(class, keyValue string) <-chan error {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return fi.mu.blocked.add(class, keyValue)
}

// unblock extracts the matching blocked checks under the lock and resolves
// them after releasing it. Resolving with the lock held would deadlock when
// a resumed caller immediately re-enters the Injector.
func (fi *Injector) unblock(class, pattern string, err error) (int, error) {
	re, cErr := compilePattern(pattern)
	if cErr != nil {
		return 0, cErr
	}
	fi.mu.Lock()
	matched := fi.mu.blocked.extractMatching(class, re)
	fi.mu.Unlock()

	for _, bc := range matched {
		bc.resolve(err)
	}
	fi.logger.Debug("unblocked checks", "class", class, "pattern", pattern,
		"count", len(matched))
	return len(matched), nil
}

func (fi *Injector) unblockAllImpl(err error) int {
	fi.mu.Lock()
	extracted := fi.mu.blocked
	fi.mu.blocked = make(blockedCheckTable)
	fi.mu.Unlock()

	n := 0
	for _, checks := range extracted {
		for _, bc := range checks {
			bc.resolve(err)
		}
		n += len(checks)
	}
	return n
}
