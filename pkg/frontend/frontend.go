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

// Package frontend is the network-facing side of jwx: it accepts
// connections and serves each one on its own goroutine, answering from the
// content root or through the dispatcher.
package frontend

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
)

// Server accepts connections and hands each to the Handler
type Server struct {
	Handler *Handler
	wg      sync.WaitGroup
}

// NewServer returns a Server for h
func NewServer(h *Handler) *Server {
	return &Server{Handler: h}
}

// Serve accepts connections on l until ctx is done or l fails, then closes
// l and waits for the open connections to finish
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()
	defer s.wg.Wait()

	logger.Info("frontend listening", logging.Pairs{"address": l.Addr().String()})
	var backoff time.Duration
	for {
		c, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Info("frontend stopped", logging.Pairs{"address": l.Addr().String()})
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				logger.Warn("accept failed, retrying",
					logging.Pairs{"detail": err, "backoff": backoff.String()})
				time.Sleep(backoff)
				continue
			}
			logger.Error("accept failed", logging.Pairs{"detail": err})
			return err
		}
		backoff = 0
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Handler.Serve(ctx, c)
		}()
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}
