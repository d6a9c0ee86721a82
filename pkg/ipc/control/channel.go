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

package control

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jwx-server/jwx/pkg/errors"
	"github.com/jwx-server/jwx/pkg/observability/metrics"
)

type deadliner interface {
	SetDeadline(time.Time) error
}

// Channel is one end of the control channel. Exchange serializes
// request/reply pairs across goroutines; a channel that fails an exchange
// or receives Close is broken for good.
type Channel struct {
	rw          io.ReadWriteCloser
	mtx         sync.Mutex
	broken      atomic.Bool
	maxIDLength uint64
}

// NewChannel wraps rw as a control channel
func NewChannel(rw io.ReadWriteCloser) *Channel {
	return &Channel{rw: rw, maxIDLength: DefaultMaxIDLength}
}

// SetMaxIDLength sets the longest Request id accepted from the peer
func (c *Channel) SetMaxIDLength(n uint64) {
	c.maxIDLength = n
}

// Broken returns true once the channel can no longer be used
func (c *Channel) Broken() bool {
	return c.broken.Load()
}

// Send writes m to the peer
func (c *Channel) Send(m Message) error {
	if err := Encode(c.rw, m); err != nil {
		c.broken.Store(true)
		return err
	}
	metrics.ControlMessages.WithLabelValues("sent", m.Type.String()).Inc()
	return nil
}

// Receive reads the next message from the peer
func (c *Channel) Receive() (Message, error) {
	m, err := Decode(c.rw, c.maxIDLength)
	if err != nil {
		c.broken.Store(true)
		return m, err
	}
	metrics.ControlMessages.WithLabelValues("received", m.Type.String()).Inc()
	return m, nil
}

// Exchange sends m and waits for the reply while holding exclusive use of
// the channel. The context bounds the exchange when the underlying
// connection supports deadlines; an exchange that times out breaks the
// channel, since a late reply would desynchronize it.
func (c *Channel) Exchange(ctx context.Context, m Message) (Message, error) {
	if c.Broken() {
		return Message{}, errors.ErrDispatcherClosed
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.Broken() {
		return Message{}, errors.ErrDispatcherClosed
	}
	if d, ok := c.rw.(deadliner); ok {
		dl, _ := ctx.Deadline()
		d.SetDeadline(dl)
		fired := make(chan struct{})
		stop := context.AfterFunc(ctx, func() {
			d.SetDeadline(time.Unix(1, 0))
			close(fired)
		})
		defer func() {
			// a callback already running must finish before the reset
			if !stop() {
				<-fired
			}
			d.SetDeadline(time.Time{})
		}()
	}
	if err := c.Send(m); err != nil {
		return Message{}, err
	}
	reply, err := c.Receive()
	if err != nil {
		return Message{}, err
	}
	if reply.Type == TypeClose {
		c.broken.Store(true)
	}
	return reply, nil
}

// Notify sends m while holding exclusive use of the channel, without
// waiting for a reply
func (c *Channel) Notify(m Message) error {
	if c.Broken() {
		return errors.ErrDispatcherClosed
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.Send(m)
}

// Close closes the underlying connection and breaks the channel
func (c *Channel) Close() error {
	c.broken.Store(true)
	return c.rw.Close()
}
