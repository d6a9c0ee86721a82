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

// Package procman places the dispatcher loop: on a goroutine of the listener
// process, or in a child process that dials back to the listener and logs in
// with a one-time key before the connection becomes its control channel.
package procman

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jwx-server/jwx/pkg/dispatcher"
	"github.com/jwx-server/jwx/pkg/dispatcher/isolation"
	do "github.com/jwx-server/jwx/pkg/dispatcher/options"
	"github.com/jwx-server/jwx/pkg/errors"
	"github.com/jwx-server/jwx/pkg/ipc/bootstrap"
	"github.com/jwx-server/jwx/pkg/ipc/control"
	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
)

// EnvDispatcher names the environment variable that carries "<addr>|<key>"
// to a dispatcher child process
const EnvDispatcher = "JWX_DISPATCHER"

// Dispatcher is a started dispatcher loop as seen from the listener
type Dispatcher struct {
	// Control is the listener's end of the control channel
	Control *control.Channel
	Mode    string
	PID     int

	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

func newDispatcher(ch *control.Channel, mode string, pid int,
	cancel context.CancelFunc) *Dispatcher {
	return &Dispatcher{
		Control: ch,
		Mode:    mode,
		PID:     pid,
		done:    make(chan struct{}),
		cancel:  cancel,
	}
}

func (d *Dispatcher) finish(err error) {
	d.err = err
	close(d.done)
}

// Done is closed once the dispatcher loop has ended
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Err returns the reason the dispatcher ended; only valid after Done
func (d *Dispatcher) Err() error {
	return d.err
}

// Poll checks that the dispatcher answers a Poll with Ok
func (d *Dispatcher) Poll(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	reply, err := d.Control.Exchange(ctx, control.Poll)
	if err != nil {
		return err
	}
	if reply.Type != control.TypeOk {
		return fmt.Errorf("%w: poll answered with %s", errors.ErrDispatcherClosed, reply)
	}
	return nil
}

// Stop sends Close and waits up to timeout for the dispatcher to end, then
// forces it down
func (d *Dispatcher) Stop(timeout time.Duration) error {
	select {
	case <-d.done:
		d.Control.Close()
		return d.err
	default:
	}
	if err := d.Control.Notify(control.Close); err != nil {
		logger.Debug("dispatcher close not sent", logging.Pairs{"detail": err})
	}
	select {
	case <-d.done:
	case <-time.After(timeout):
		logger.Warn("dispatcher did not stop in time, forcing",
			logging.Pairs{"mode": d.Mode, "pid": d.PID})
		d.cancel()
		<-d.done
	}
	d.Control.Close()
	return d.err
}

// StartInProcess runs the dispatcher loop on a goroutine, connected to the
// returned Dispatcher by an in-memory pipe. Units are started with iso, which
// must be bound to a context that outlives the loop.
func StartInProcess(iso isolation.Isolator) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	a, b := net.Pipe()
	ch := control.NewChannel(a)
	ch.SetMaxIDLength(do.DefaultMaxIDLength)
	loop := dispatcher.New(ch, iso)
	d := newDispatcher(control.NewChannel(b), do.ModeInProcess, os.Getpid(), cancel)
	go func() {
		err := loop.Run(ctx)
		// unblocks a listener write the loop will never read
		ch.Close()
		iso.Wait()
		cancel()
		d.finish(err)
	}()
	return d
}

func newKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// StartProcess starts the executable at path with args as the dispatcher
// child, waits for it to log in through a temporary loopback gate, and hands
// it settings. The accepted connection becomes the control channel.
func StartProcess(path string, args []string, settings bootstrap.Settings,
	timeout time.Duration) (*Dispatcher, error) {
	key, err := newKey()
	if err != nil {
		return nil, err
	}
	gate, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	defer gate.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = append(os.Environ(), EnvDispatcher+"="+gate.Addr().String()+"|"+key)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, err
	}
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	fail := func(err error) (*Dispatcher, error) {
		cancel()
		<-exited
		return nil, err
	}

	gate.(*net.TCPListener).SetDeadline(time.Now().Add(timeout))
	conn, err := gate.Accept()
	if err != nil {
		return fail(fmt.Errorf("waiting for dispatcher process: %w", err))
	}
	conn.SetDeadline(time.Now().Add(timeout))
	login, err := bootstrap.Accept(conn, key, settings)
	if err != nil {
		conn.Close()
		return fail(err)
	}
	conn.SetDeadline(time.Time{})
	logger.Info("dispatcher process logged in",
		logging.Pairs{"pid": login.PID, "unitMode": settings.UnitMode})

	d := newDispatcher(control.NewChannel(conn), do.ModeProcess, cmd.Process.Pid, cancel)
	go func() {
		err := <-exited
		cancel()
		d.finish(err)
	}()
	return d, nil
}

// Login is the child side of StartProcess: it parses the value of
// EnvDispatcher, dials the listener's gate and logs in with the key
func Login(value string, timeout time.Duration) (net.Conn, *bootstrap.Settings, error) {
	addr, key, ok := strings.Cut(value, "|")
	if !ok || addr == "" || key == "" {
		return nil, nil, fmt.Errorf("%w: malformed %s", errors.ErrBadLogin, EnvDispatcher)
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, nil, err
	}
	conn.SetDeadline(time.Now().Add(timeout))
	s, err := bootstrap.Dial(conn, key, int64(os.Getpid()))
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	conn.SetDeadline(time.Time{})
	return conn, s, nil
}
