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

package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/jwx-server/jwx/pkg/errors"
	"github.com/jwx-server/jwx/pkg/httpmsg"
	"github.com/jwx-server/jwx/pkg/ipc/datachan"
	"github.com/jwx-server/jwx/pkg/ipc/frame"
	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
	"github.com/jwx-server/jwx/pkg/observability/tracing"
	"github.com/jwx-server/jwx/pkg/observability/tracing/span"
	"github.com/jwx-server/jwx/pkg/router"
)

// Unit serves one dynamic request: it reads the framed request from the
// id's out channel, routes it, and writes the serialized response to the
// id's in channel. A unit that cannot produce a response closes the in
// channel without writing, so the frontend sees an empty response.
type Unit struct {
	Transport datachan.Transport
	Router    router.Router
	// MaxPayload bounds the request frame; 0 means no limit
	MaxPayload uint64
	// HandshakeTimeout bounds each data channel open
	HandshakeTimeout time.Duration
	// Timeout bounds the handler run
	Timeout time.Duration
	// Server is set as the Server header when the handler did not set one
	Server string
	Tracer *tracing.Tracer
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Serve handles the request named by id. It satisfies isolation.UnitFunc.
func (u *Unit) Serve(ctx context.Context, id string) error {
	if !u.Transport.Exists(id) {
		return fmt.Errorf("%w: %s", errors.ErrNoSuchChannel, id)
	}
	payload, err := u.readRequest(ctx, id)
	if err != nil {
		u.abandon(ctx, id)
		return err
	}
	req, ok := httpmsg.ParseRequest(payload)
	if !ok {
		u.abandon(ctx, id)
		return fmt.Errorf("%w: %d bytes", errors.ErrUnparsableRequest, len(payload))
	}

	rctx, cancel := withTimeout(ctx, u.Timeout)
	rctx, sp := span.PrepareRequest(rctx, u.Tracer, req, "unit")
	resp := u.Router.Run(rctx, req)
	cancel()
	if resp.Headers == nil {
		resp.Headers = httpmsg.Headers{}
	}
	if _, ok := resp.Headers[httpmsg.HeaderServer]; !ok && u.Server != "" {
		resp.Headers[httpmsg.HeaderServer] = u.Server
	}
	span.Finish(sp, resp.StatusCode)

	logger.Debug("unit response", logging.Pairs{
		"requestID": id,
		"method":    req.Method.String(),
		"path":      req.Path(),
		"status":    resp.StatusCode,
	})
	return u.writeResponse(ctx, id, resp.Serialize())
}

func (u *Unit) readRequest(ctx context.Context, id string) ([]byte, error) {
	hctx, cancel := withTimeout(ctx, u.HandshakeTimeout)
	r, err := u.Transport.OpenReader(hctx, id, datachan.Out)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", datachan.Name(id, datachan.Out), err)
	}
	defer r.Close()
	return frame.Read(r, u.MaxPayload)
}

func (u *Unit) writeResponse(ctx context.Context, id string, b []byte) error {
	hctx, cancel := withTimeout(ctx, u.HandshakeTimeout)
	w, err := u.Transport.OpenWriter(hctx, id, datachan.In)
	cancel()
	if err != nil {
		return fmt.Errorf("opening %s: %w", datachan.Name(id, datachan.In), err)
	}
	if len(b) > 0 {
		_, err = w.Write(b)
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}

// abandon closes the in channel without a response
func (u *Unit) abandon(ctx context.Context, id string) {
	if err := u.writeResponse(ctx, id, nil); err != nil {
		logger.Debug("unit could not close response channel",
			logging.Pairs{"requestID": id, "detail": err})
	}
}
