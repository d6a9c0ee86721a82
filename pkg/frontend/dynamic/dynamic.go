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

// Package dynamic is the frontend side of dynamic dispatch: it admits a
// request through the control channel and exchanges the payloads over the
// request's data channels
package dynamic

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jwx-server/jwx/pkg/errors"
	"github.com/jwx-server/jwx/pkg/httpmsg"
	"github.com/jwx-server/jwx/pkg/ipc/control"
	"github.com/jwx-server/jwx/pkg/ipc/datachan"
	"github.com/jwx-server/jwx/pkg/ipc/frame"
	"github.com/jwx-server/jwx/pkg/ipc/ids"
	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
)

// Client dispatches requests to the dispatcher. It is safe for concurrent
// use; control exchanges are serialized, payload transfers are not.
type Client struct {
	Control   *control.Channel
	Transport datachan.Transport
	IDs       *ids.Generator
	// ExchangeTimeout bounds each control exchange
	ExchangeTimeout time.Duration
	// HandshakeTimeout bounds each data channel open
	HandshakeTimeout time.Duration
	// ResponseTimeout bounds reading the response once its channel is open
	ResponseTimeout time.Duration
	// MaxPayload caps the response size; 0 means no limit
	MaxPayload int64
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Available returns false once the dispatcher has closed the control
// channel; every later dispatch would fail
func (c *Client) Available() bool {
	return c != nil && c.Control != nil && !c.Control.Broken()
}

// Do dispatches req and returns the serialized response written by the
// isolation unit
func (c *Client) Do(ctx context.Context, req *httpmsg.Request) ([]byte, error) {
	if !c.Available() {
		return nil, errors.ErrDispatcherClosed
	}
	id := c.IDs.Next()
	if err := c.Transport.Create(id); err != nil {
		return nil, fmt.Errorf("creating data channels for %s: %w", id, err)
	}
	defer func() {
		if err := c.Transport.Remove(id); err != nil {
			logger.Warn("data channel removal failed",
				logging.Pairs{"requestID": id, "detail": err})
		}
	}()

	if err := c.admit(ctx, id); err != nil {
		return nil, err
	}
	if err := c.send(ctx, id, req.Serialize()); err != nil {
		return nil, err
	}
	return c.receive(ctx, id)
}

func (c *Client) admit(ctx context.Context, id string) error {
	ectx, cancel := withTimeout(ctx, c.ExchangeTimeout)
	defer cancel()
	reply, err := c.Control.Exchange(ectx, control.Request(id))
	if err != nil {
		if c.Control.Broken() {
			logger.ErrorOnce("control-broken", "control channel broken, dynamic dispatch disabled",
				logging.Pairs{"detail": err})
		}
		return fmt.Errorf("admitting %s: %w", id, err)
	}
	switch reply.Type {
	case control.TypeOk:
		return nil
	case control.TypeClose:
		logger.ErrorOnce("control-closed", "dispatcher closed, dynamic dispatch disabled",
			logging.Pairs{"requestID": id})
		return errors.ErrDispatcherClosed
	default:
		return fmt.Errorf("%w: reply %s", errors.ErrRequestDenied, reply)
	}
}

func (c *Client) send(ctx context.Context, id string, payload []byte) error {
	hctx, cancel := withTimeout(ctx, c.HandshakeTimeout)
	w, err := c.Transport.OpenWriter(hctx, id, datachan.Out)
	cancel()
	if err != nil {
		return fmt.Errorf("opening %s: %w", datachan.Name(id, datachan.Out), err)
	}
	err = frame.Write(w, payload)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", datachan.Name(id, datachan.Out), err)
	}
	return nil
}

func (c *Client) receive(ctx context.Context, id string) ([]byte, error) {
	hctx, cancel := withTimeout(ctx, c.HandshakeTimeout)
	r, err := c.Transport.OpenReader(hctx, id, datachan.In)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", datachan.Name(id, datachan.In), err)
	}
	rctx, cancel := withTimeout(ctx, c.ResponseTimeout)
	defer cancel()
	stop := context.AfterFunc(rctx, func() { r.Close() })
	defer stop()
	defer r.Close()

	var src io.Reader = r
	if c.MaxPayload > 0 {
		src = io.LimitReader(r, c.MaxPayload+1)
	}
	b, err := io.ReadAll(src)
	if err != nil {
		if rctx.Err() != nil {
			err = rctx.Err()
		}
		return nil, fmt.Errorf("reading %s: %w", datachan.Name(id, datachan.In), err)
	}
	if c.MaxPayload > 0 && int64(len(b)) > c.MaxPayload {
		return nil, fmt.Errorf("%w: response for %s", errors.ErrPayloadTooLarge, id)
	}
	if len(b) == 0 {
		return nil, errors.ErrEmptyResponse
	}
	return b, nil
}
