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

package isolation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jwx-server/jwx/pkg/errors"
	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
)

var _ Isolator = &Goroutine{}

// Goroutine is an Isolator that serves each unit on a new goroutine.
// A panicking unit is recovered and logged.
type Goroutine struct {
	ctx   context.Context
	serve UnitFunc
	wg    sync.WaitGroup
}

// NewGoroutine returns a Goroutine isolator whose units run under ctx
func NewGoroutine(ctx context.Context, serve UnitFunc) *Goroutine {
	return &Goroutine{ctx: ctx, serve: serve}
}

func (g *Goroutine) Mode() string {
	return ModeGoroutine
}

func (g *Goroutine) Spawn(id string) error {
	if err := g.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrSpawnFailed, err)
	}
	g.wg.Add(1)
	go g.run(id)
	return nil
}

func (g *Goroutine) run(id string) {
	start := time.Now()
	defer g.wg.Done()
	defer func() {
		if p := recover(); p != nil {
			logger.Error("unit panic", logging.Pairs{"requestID": id, "detail": p})
			observe(ModeGoroutine, outcomePanic, start)
		}
	}()
	if err := g.serve(g.ctx, id); err != nil {
		logger.Warn("unit failed", logging.Pairs{"requestID": id, "detail": err})
		observe(ModeGoroutine, outcomeFailed, start)
		return
	}
	observe(ModeGoroutine, outcomeOK, start)
}

func (g *Goroutine) Wait() {
	g.wg.Wait()
}
