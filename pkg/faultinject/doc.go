// Copyright 2025 The Distkit Authors.
//
// Use of this software is governed by the MIT License
// included in the /LICENSE file.

// Package faultinject is a deterministic fault-injection harness for tests.
// It lets tests drive production code down rare failure paths (errors,
// delays, indefinite blocking, process aborts) at precise, named checkpoints
// without changing that code's logic.
//
// Production code places a checkpoint by calling Check with a key class and a
// per-call key value:
//
//	if err := fi.Check(ctx, "fsync", path); err != nil {
//		return err
//	}
//
// Tests register faults against checkpoints by key class and a regular
// expression over the key value:
//
//	fi.InjectError("fsync", `/data/.*`, errDiskFull, 1) // fail the first match
//	fi.InjectBlock("flush", ".*", 0)                    // block until unblocked
//
// A fault pattern must match the entire key value, not merely a substring of
// it. Faults within a class are consulted in registration order and the first
// match wins. A fault registered with a nonzero count expires after that many
// matches; a count of zero keeps it active until it is removed.
//
// Blocked checks are resumed with Unblock or UnblockAll, listed with
// BlockedFaults, and awaited with WaitUntilBlocked. Closing the Injector
// resolves anything still blocked with ErrDestroyed.
package faultinject
