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

package options

import "github.com/jwx-server/jwx/pkg/dispatcher/isolation"

const (
	// DefaultDispatcherMode runs the dispatcher loop inside the listener process
	DefaultDispatcherMode = ModeInProcess
	// DefaultUnitMode runs each request on its own goroutine
	DefaultUnitMode = isolation.ModeGoroutine
	// DefaultFIFODir is where named pipes are created when a FIFO transport is
	// needed; empty means the OS temp dir
	DefaultFIFODir = ""
	// DefaultHandshakeTimeoutMS bounds a single data channel open
	DefaultHandshakeTimeoutMS = 5000
	// DefaultExchangeTimeoutMS bounds a control message round trip
	DefaultExchangeTimeoutMS = 5000
	// DefaultUnitTimeoutMS bounds a single handler run
	DefaultUnitTimeoutMS = 30000
	// DefaultMaxPayloadBytes bounds a request or response frame
	DefaultMaxPayloadBytes = 16 << 20
	// DefaultMaxIDLength bounds a request id on the control channel
	DefaultMaxIDLength = 1024
)
