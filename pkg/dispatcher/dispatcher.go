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

// Package dispatcher runs the dispatcher side of the control channel: it
// answers liveness messages and admits each dynamic request by spawning an
// isolation unit for it.
package dispatcher

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/jwx-server/jwx/pkg/dispatcher/isolation"
	"github.com/jwx-server/jwx/pkg/ipc/control"
	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
)

// State is the state of a Dispatcher
type State int32

const (
	// Running is the state of a dispatcher reading control messages
	Running State = iota
	// Terminated is the state of a dispatcher whose loop has exited
	Terminated
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "terminated"
}

// Dispatcher reads control messages one at a time and replies to each
type Dispatcher struct {
	ch       *control.Channel
	isolator isolation.Isolator
	state    atomic.Int32
}

// New returns a Running Dispatcher that admits requests into iso
func New(ch *control.Channel, iso isolation.Isolator) *Dispatcher {
	return &Dispatcher{ch: ch, isolator: iso}
}

// State returns the current state of the dispatcher
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Run reads and answers control messages until the peer sends Close, the
// channel fails, a unit cannot be spawned, or ctx is done. A Close from the
// peer, end of input, and ctx cancellation end the loop without error.
// Run does not wait for outstanding units.
func (d *Dispatcher) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { d.ch.Close() })
	defer stop()
	defer d.state.Store(int32(Terminated))

	logger.Info("dispatcher running", logging.Pairs{"isolation": d.isolator.Mode()})
	for {
		m, err := d.ch.Receive()
		if err != nil {
			if ctx.Err() != nil || err == io.EOF {
				logger.Info("dispatcher terminated", logging.Pairs{"reason": "control channel closed"})
				return nil
			}
			logger.Error("control channel receive failed", logging.Pairs{"detail": err})
			return err
		}
		switch m.Type {
		case control.TypePoll, control.TypeOk:
			err = d.ch.Send(control.Ok)
		case control.TypeRequest:
			if serr := d.isolator.Spawn(m.ID); serr != nil {
				logger.Error("unit spawn failed, closing dispatcher",
					logging.Pairs{"requestID": m.ID, "detail": serr})
				d.ch.Send(control.Close)
				return serr
			}
			logger.Debug("request admitted", logging.Pairs{"requestID": m.ID})
			err = d.ch.Send(control.Ok)
		case control.TypeClose:
			logger.Info("dispatcher terminated", logging.Pairs{"reason": "close received"})
			return nil
		}
		if err != nil {
			logger.Error("control channel send failed", logging.Pairs{"detail": err})
			return err
		}
	}
}
