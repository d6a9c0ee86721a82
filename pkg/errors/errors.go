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

// Package errors holds the sentinel errors shared across jwx packages
package errors

import "errors"

// ErrInvalidOptions is an error for when a configuration is invalid
var ErrInvalidOptions = errors.New("invalid options")

// ErrInvalidPort is an error for a listen port outside of 0-65535
var ErrInvalidPort = errors.New("invalid listen port")

// ErrInvalidMode is an error for an unknown dispatcher or unit mode
var ErrInvalidMode = errors.New("invalid mode")

// ErrInvalidTimeout is an error for a non-positive timeout value
var ErrInvalidTimeout = errors.New("invalid timeout")

// ErrUnsupportedPlatform is an error for a feature that needs named pipes
// on a platform that does not provide them
var ErrUnsupportedPlatform = errors.New("named pipes are not supported on this platform")

// ErrUnknownBehaviorKind is an error for an endpoint whose handler kind
// could not be determined
var ErrUnknownBehaviorKind = errors.New("unknown behavior kind")

// ErrDispatcherClosed is an error for when the dispatcher has answered
// Close, or the control channel has otherwise broken
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// ErrRequestDenied is an error for a Request message not answered with Ok
var ErrRequestDenied = errors.New("dispatcher denied the request")

// ErrEmptyResponse is an error for a dynamic request whose response
// channel was closed without any data
var ErrEmptyResponse = errors.New("empty response from dispatcher")

// ErrNoSuchChannel is an error for a data channel that has not been created
var ErrNoSuchChannel = errors.New("no such data channel")

// ErrChannelExists is an error for creating a data channel id twice
var ErrChannelExists = errors.New("data channel already exists")

// ErrPayloadTooLarge is an error for a frame length over the configured limit
var ErrPayloadTooLarge = errors.New("payload too large")

// ErrSpawnFailed is an error for an isolation unit that could not be started
var ErrSpawnFailed = errors.New("failed to spawn isolation unit")

// ErrBadLogin is an error for a dispatcher process presenting the wrong key
var ErrBadLogin = errors.New("bad dispatcher login")

// ErrUnknownControlTag is an error for a control message with an unrecognized tag
var ErrUnknownControlTag = errors.New("unknown control message tag")

// ErrNoTracerOptions is an error for a tracer built from nil *Options
var ErrNoTracerOptions = errors.New("no tracer options provided")

// ErrInvalidEndpointURL is an error for a collector endpoint the tracing
// provider cannot use
var ErrInvalidEndpointURL = errors.New("invalid endpoint url")

// ErrInvalidTracerProvider is an error for an unknown tracing provider name
var ErrInvalidTracerProvider = errors.New("invalid tracer provider")

// ErrUnparsableRequest is an error for request bytes that do not form an
// HTTP request
var ErrUnparsableRequest = errors.New("could not parse request")

// ErrServerAlreadyStarted is returned when the daemon is started twice in
// one process
var ErrServerAlreadyStarted = errors.New("server is already started")
