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
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/jwx-server/jwx/pkg/errors"
	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
)

var _ Isolator = &Process{}

// Process is an Isolator that starts a child process per unit. The child is
// the executable at Path run with Args, and finds its request id in
// EnvUnitID. A child still running after Timeout is killed.
type Process struct {
	Path    string
	Args    []string
	Env     []string
	Timeout time.Duration

	ctx context.Context
	wg  sync.WaitGroup
}

// NewProcess returns a Process isolator whose children are killed when ctx
// is done
func NewProcess(ctx context.Context, path string, args, env []string,
	timeout time.Duration) *Process {
	return &Process{
		Path:    path,
		Args:    args,
		Env:     env,
		Timeout: timeout,
		ctx:     ctx,
	}
}

func (p *Process) Mode() string {
	return ModeProcess
}

func (p *Process) Spawn(id string) error {
	ctx, cancel := p.ctx, context.CancelFunc(func() {})
	if p.Timeout > 0 {
		ctx, cancel = context.WithTimeout(p.ctx, p.Timeout)
	}
	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	cmd.Env = append(os.Environ(), p.Env...)
	cmd.Env = append(cmd.Env, EnvUnitID+"="+id)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	start := time.Now()
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: %v", errors.ErrSpawnFailed, err)
	}
	p.wg.Add(1)
	go p.reap(ctx, cancel, cmd, id, start)
	return nil
}

func (p *Process) reap(ctx context.Context, cancel context.CancelFunc,
	cmd *exec.Cmd, id string, start time.Time) {
	defer p.wg.Done()
	defer cancel()
	err := cmd.Wait()
	if err == nil {
		observe(ModeProcess, outcomeOK, start)
		return
	}
	outcome := outcomeFailed
	if ctx.Err() != nil {
		outcome = "killed"
	}
	logger.Warn("unit process failed", logging.Pairs{
		"requestID": id,
		"pid":       cmd.Process.Pid,
		"outcome":   outcome,
		"detail":    err,
	})
	observe(ModeProcess, outcome, start)
}

func (p *Process) Wait() {
	p.wg.Wait()
}
