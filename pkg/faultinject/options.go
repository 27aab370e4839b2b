// Copyright 2025 The Distkit Authors.
//
// Use of this software is governed by the MIT License
// included in the /LICENSE file.

package faultinject

import (
	"log/slog"
	"os"
)

// Option is used to configure an Injector.
type Option interface {
	apply(*config)
}

type config struct {
	logger *slog.Logger
	killFn func()
}

type optionFunc func(*config)

func (f optionFunc) apply(cfg *config) { f(cfg) }

// WithLogger routes the Injector's fault-event logging to logger instead of
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(cfg *config) {
		cfg.logger = logger
	})
}

// WithKillFunc replaces the process abort performed by a Kill fault. Tests
// use this to observe Kill faults without dying. The function is expected
// not to return; if it does, the check passes.
func WithKillFunc(fn func()) Option {
	return optionFunc(func(cfg *config) {
		cfg.killFn = fn
	})
}

// defaultKillFunc aborts the process when a Kill fault matches. A var so
// tests can hook it.
var defaultKillFunc = func() {
	os.Exit(134)
}

func defaultConfig() config {
	return config{
		logger: slog.Default(),
		killFn: defaultKillFunc,
	}
}
