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

package setup

import (
	"context"
	"os"

	"github.com/jwx-server/jwx/pkg/daemon/instance"
	"github.com/jwx-server/jwx/pkg/daemon/procman"
	"github.com/jwx-server/jwx/pkg/dispatcher"
	do "github.com/jwx-server/jwx/pkg/dispatcher/options"
	"github.com/jwx-server/jwx/pkg/ipc/control"
	"github.com/jwx-server/jwx/pkg/ipc/datachan"
	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
)

// executable and processArgs describe how child processes are started: the
// running binary with the arguments it was given
var (
	executable  = os.Executable
	processArgs = func() []string { return os.Args[1:] }
)

// RunDispatcher is the dispatcher child process: it logs in to the listener
// that started it and runs the dispatcher loop over that connection until
// the listener sends Close or goes away
func RunDispatcher(ctx context.Context, si *instance.ServerInstance) error {
	o := si.Config.Dispatcher
	conn, settings, err := procman.Login(si.Token, o.HandshakeTimeout())
	if err != nil {
		logger.Error("dispatcher login failed", logging.Pairs{"detail": err})
		return err
	}
	if settings.FIFODir != "" {
		o.FIFODir = settings.FIFODir
	}
	if settings.UnitMode != "" {
		o.UnitMode = settings.UnitMode
	}
	logger.Info("dispatcher logged in",
		logging.Pairs{"unitMode": o.UnitMode, "fifoDir": o.FIFODir})

	tr, err := datachan.NewFIFO(o.FIFODir)
	if err != nil {
		conn.Close()
		return err
	}
	iso, err := NewIsolator(ctx, si, o.UnitMode, tr)
	if err != nil {
		conn.Close()
		return err
	}
	ch := control.NewChannel(conn)
	ch.SetMaxIDLength(do.DefaultMaxIDLength)
	err = dispatcher.New(ch, iso).Run(ctx)
	iso.Wait()
	return err
}

// RunUnit is a unit child process: it serves the one request named by the
// instance token and returns
func RunUnit(ctx context.Context, si *instance.ServerInstance) error {
	tr, err := datachan.NewFIFO(si.Config.Dispatcher.FIFODir)
	if err != nil {
		return err
	}
	u, err := NewUnit(si, tr)
	if err != nil {
		logger.Error("unit setup failed", logging.Pairs{"id": si.Token, "detail": err})
		return err
	}
	return u.Serve(ctx, si.Token)
}
