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

// Package isolation runs each admitted dynamic request in its own isolation
// unit. A unit handles exactly one request and is then gone.
package isolation

import (
	"context"
	"time"

	"github.com/jwx-server/jwx/pkg/observability/metrics"
)

const (
	// ModeGoroutine runs each unit on its own goroutine in the dispatcher
	// process, with a fresh handler interpreter
	ModeGoroutine = "goroutine"
	// ModeProcess runs each unit as a child process of the dispatcher
	ModeProcess = "process"

	// EnvUnitID names the environment variable carrying a process unit's
	// request id
	EnvUnitID = "JWX_UNIT_ID"
)

// Modes lists the supported isolation modes
var Modes = []string{ModeGoroutine, ModeProcess}

const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
	outcomePanic  = "panic"
)

// UnitFunc serves the request named by id
type UnitFunc func(ctx context.Context, id string) error

// Isolator starts isolation units. Spawn returns once the unit is started,
// without waiting for it to finish; an error means no unit was started.
type Isolator interface {
	Mode() string
	Spawn(id string) error
	// Wait blocks until every spawned unit has finished
	Wait()
}

func observe(mode, outcome string, start time.Time) {
	metrics.DispatcherUnits.WithLabelValues(mode, outcome).Inc()
	metrics.DispatcherUnitDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}
