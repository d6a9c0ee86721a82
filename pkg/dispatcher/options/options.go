/*
 * Copyright 2024 The JWX Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package options holds the configuration of the dispatcher and its
// isolation units
package options

import (
	"fmt"
	"runtime"
	"time"

	"github.com/jwx-server/jwx/pkg/dispatcher/isolation"
	"github.com/jwx-server/jwx/pkg/errors"

	"golang.org/x/exp/slices"
)

const (
	// ModeInProcess runs the dispatcher loop on a goroutine of the listener
	ModeInProcess = "inprocess"
	// ModeProcess runs the dispatcher loop in a child process
	ModeProcess = "process"
)

// Modes lists the supported dispatcher placements
var Modes = []string{ModeInProcess, ModeProcess}

// Options configures dispatcher placement, unit isolation and the IPC limits
// between them
type Options struct {
	// DispatcherMode is inprocess or process
	DispatcherMode string `yaml:"dispatcher_mode,omitempty"`
	// UnitMode is goroutine or process
	UnitMode string `yaml:"unit_mode,omitempty"`
	// FIFODir is the directory holding named pipes
	FIFODir string `yaml:"fifo_dir,omitempty"`
	// HandshakeTimeoutMS bounds each data channel open
	HandshakeTimeoutMS int `yaml:"handshake_timeout_ms,omitempty"`
	// ExchangeTimeoutMS bounds a control message round trip
	ExchangeTimeoutMS int `yaml:"exchange_timeout_ms,omitempty"`
	// UnitTimeoutMS bounds a single handler run
	UnitTimeoutMS int `yaml:"unit_timeout_ms,omitempty"`
	// MaxPayloadBytes bounds a request or response frame
	MaxPayloadBytes int64 `yaml:"max_payload_bytes,omitempty"`
}

// New returns Options with default values
func New() *Options {
	return &Options{
		DispatcherMode:     DefaultDispatcherMode,
		UnitMode:           DefaultUnitMode,
		FIFODir:            DefaultFIFODir,
		HandshakeTimeoutMS: DefaultHandshakeTimeoutMS,
		ExchangeTimeoutMS:  DefaultExchangeTimeoutMS,
		UnitTimeoutMS:      DefaultUnitTimeoutMS,
		MaxPayloadBytes:    DefaultMaxPayloadBytes,
	}
}

// Clone returns a copy of the Options
func (o *Options) Clone() *Options {
	co := *o
	return &co
}

// InProcess returns true when both the dispatcher and its units live in
// the listener process, so data channels never cross a process boundary
func (o *Options) InProcess() bool {
	return o.DispatcherMode == ModeInProcess && o.UnitMode == isolation.ModeGoroutine
}

// HandshakeTimeout returns HandshakeTimeoutMS as a Duration
func (o *Options) HandshakeTimeout() time.Duration {
	return time.Duration(o.HandshakeTimeoutMS) * time.Millisecond
}

// ExchangeTimeout returns ExchangeTimeoutMS as a Duration
func (o *Options) ExchangeTimeout() time.Duration {
	return time.Duration(o.ExchangeTimeoutMS) * time.Millisecond
}

// UnitTimeout returns UnitTimeoutMS as a Duration
func (o *Options) UnitTimeout() time.Duration {
	return time.Duration(o.UnitTimeoutMS) * time.Millisecond
}

// Validate checks the modes and limits
func (o *Options) Validate() error {
	if !slices.Contains(Modes, o.DispatcherMode) {
		return fmt.Errorf("%w: dispatcher_mode %q", errors.ErrInvalidMode, o.DispatcherMode)
	}
	if !slices.Contains(isolation.Modes, o.UnitMode) {
		return fmt.Errorf("%w: unit_mode %q", errors.ErrInvalidMode, o.UnitMode)
	}
	if !o.InProcess() && runtime.GOOS == "windows" {
		return errors.ErrUnsupportedPlatform
	}
	if o.HandshakeTimeoutMS <= 0 || o.ExchangeTimeoutMS <= 0 || o.UnitTimeoutMS <= 0 {
		return fmt.Errorf("%w: dispatcher timeouts must be positive", errors.ErrInvalidTimeout)
	}
	if o.MaxPayloadBytes <= 0 {
		return fmt.Errorf("%w: max_payload_bytes must be positive", errors.ErrInvalidOptions)
	}
	return nil
}
