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

package frontend

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jwx-server/jwx/pkg/frontend/dynamic"
	"github.com/jwx-server/jwx/pkg/frontend/options"
	"github.com/jwx-server/jwx/pkg/frontend/static"
	"github.com/jwx-server/jwx/pkg/httpmsg"
	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
	"github.com/jwx-server/jwx/pkg/observability/metrics"
	"github.com/jwx-server/jwx/pkg/observability/tracing"
	"github.com/jwx-server/jwx/pkg/observability/tracing/span"
)

const (
	// ErrorBody is the body of the fallback response when neither static
	// nor dynamic dispatch produced one
	ErrorBody = "500: Internal server error"

	kindStatic  = "static"
	kindDynamic = "dynamic"
	kindError   = "error"

	readChunk = 4096
)

// Handler serves the requests of a single connection at a time. One Handler
// is shared by every connection of a Server.
type Handler struct {
	Options *options.Options
	Static  *static.Server
	Dynamic *dynamic.Client
	// DefaultHeaders are merged into every response the handler builds itself
	DefaultHeaders httpmsg.Headers
	Tracer         *tracing.Tracer
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout())
}

// Serve reads requests from c and writes their responses until the peer
// closes the connection, the connection idles out, or ctx is done. Bytes
// accumulate until a read finds nothing more immediately available, then a
// parse is attempted; a buffer that does not parse is discarded.
func (h *Handler) Serve(ctx context.Context, c net.Conn) {
	defer c.Close()
	stop := context.AfterFunc(ctx, func() { c.SetReadDeadline(time.Unix(1, 0)) })
	defer stop()

	poll := time.Duration(h.Options.ReadPollMS) * time.Millisecond
	idle := time.Duration(h.Options.IdleTimeoutMS) * time.Millisecond
	buf := make([]byte, 0, readChunk)
	chunk := make([]byte, readChunk)
	idleAt := time.Now().Add(idle)

	for {
		deadline := time.Now().Add(poll)
		if deadline.After(idleAt) {
			deadline = idleAt
		}
		c.SetReadDeadline(deadline)
		n, err := c.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if len(buf) > h.Options.MaxRequestBytes {
			logger.Warn("request too large, closing connection",
				logging.Pairs{"remoteAddr": c.RemoteAddr().String(), "bytes": len(buf)})
			metrics.FrontendParseFailures.Inc()
			return
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		eof := !isTimeout(err)
		expired := !time.Now().Before(idleAt)
		if len(buf) == 0 {
			if eof || expired {
				return
			}
			continue
		}
		req, ok := httpmsg.ParseRequest(buf)
		if !ok {
			logger.Warn("could not parse request, discarding buffer",
				logging.Pairs{"remoteAddr": c.RemoteAddr().String(), "bytes": len(buf)})
			metrics.FrontendParseFailures.Inc()
			buf = buf[:0]
			if eof {
				return
			}
			continue
		}
		if !eof && !expired && awaitingBody(req) {
			continue
		}
		keepAlive := h.respond(ctx, c, req)
		buf = buf[:0]
		idleAt = time.Now().Add(idle)
		if eof || !keepAlive {
			return
		}
	}
}

// awaitingBody returns true when the request declares more content than has
// arrived
func awaitingBody(req *httpmsg.Request) bool {
	v, ok := req.Headers.Get(httpmsg.HeaderContentLength)
	if !ok {
		return false
	}
	n, err := strconv.Atoi(v)
	return err == nil && n > len(req.Content)
}

func wantsClose(req *httpmsg.Request) bool {
	v, _ := req.Headers.Get(httpmsg.HeaderConnection)
	return strings.EqualFold(strings.TrimSpace(v), "close")
}

// respond writes the response for req and reports whether the connection
// should stay open
func (h *Handler) respond(ctx context.Context, c net.Conn, req *httpmsg.Request) bool {
	start := time.Now()
	ctx, sp := span.PrepareRequest(ctx, h.Tracer, req, "request")

	kind, status, out := h.dispatch(ctx, req)

	n, err := c.Write(out)
	span.Finish(sp, status)

	statusLabel := strconv.Itoa(status)
	metrics.FrontendRequestStatus.WithLabelValues(kind, req.Method.String(), statusLabel).Inc()
	metrics.FrontendRequestDuration.WithLabelValues(kind, req.Method.String(), statusLabel).
		Observe(time.Since(start).Seconds())
	metrics.FrontendRequestWrittenBytes.WithLabelValues(kind).Add(float64(n))

	if err != nil {
		logger.Warn("response write failed",
			logging.Pairs{"remoteAddr": c.RemoteAddr().String(), "detail": err})
		return false
	}
	return !wantsClose(req)
}

// dispatch tries static content, then dynamic dispatch, then falls back to
// a generic 500
func (h *Handler) dispatch(ctx context.Context, req *httpmsg.Request) (string, int, []byte) {
	if resp, ok := h.Static.Serve(req); ok {
		resp.Headers.Merge(h.DefaultHeaders)
		return kindStatic, resp.StatusCode, resp.Serialize()
	}
	if h.Dynamic.Available() {
		span.Inject(ctx, req.Headers)
		b, err := h.Dynamic.Do(ctx, req)
		if err == nil {
			status := 0
			if resp, ok := httpmsg.ParseResponse(b); ok {
				status = resp.StatusCode
			}
			return kindDynamic, status, b
		}
		logger.Warn("dynamic dispatch failed",
			logging.Pairs{"method": req.Method.String(), "path": req.Path(), "detail": err})
	}
	resp := httpmsg.NewTextResponse(500, ErrorBody, req.Version)
	resp.Headers.Merge(h.DefaultHeaders)
	return kindError, resp.StatusCode, resp.Serialize()
}
