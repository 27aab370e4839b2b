// Copyright 2025 The Distkit Authors.
//
// Use of this software is governed by the MIT License
// included in the /LICENSE file.

package faultinject

import "time"

// Behavior is what a matched fault does to the check that hit it. The set of
// behaviors is closed: NoOp, Error, Block, Delay, and Kill. Dispatch sites
// type-switch over all five and treat anything else as an assertion failure,
// so adding a behavior forces every site to handle it.
//
// A Behavior is copied out of its fault before any registry mutation, so
// resolving it is never affected by concurrent fault edits.
type Behavior interface {
	// kind returns the name used in log events.
	kind() string
}

// NoOp lets the check pass with no effect. It is also what resolution
// returns when no fault matches.
type NoOp struct{}

// Error fails the check synchronously with Err.
type Error struct {
	Err error
}

// Block suspends the check indefinitely until an explicit unblock call or
// injector teardown resolves it.
type Block struct{}

// Delay suspends the check for Duration. On expiry the check fails with Err
// if Err is non-nil, and passes otherwise.
type Delay struct {
	Duration time.Duration
	Err      error
}

// Kill aborts the process. The abort mechanism is the injector's kill
// function, os.Exit unless overridden via WithKillFunc.
type Kill struct{}

func (NoOp) kind() string  { return "noop" }
func (Error) kind() string { return "error" }
func (Block) kind() string { return "block" }
func (Delay) kind() string { return "delay" }
func (Kill) kind() string  { return "kill" }
