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

// Package listener provides the observed, connection-limited TCP listeners
// used by the frontend and the metrics endpoint
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
	"github.com/jwx-server/jwx/pkg/observability/metrics"

	"golang.org/x/net/netutil"
)

// Listener is the jwx net.Listener implementation
type Listener struct {
	net.Listener
	Name string
}

type observedConnection struct {
	net.Conn
	once sync.Once
}

func (o *observedConnection) Close() error {
	err := o.Conn.Close()
	o.once.Do(func() {
		metrics.FrontendActiveConnections.Dec()
		metrics.FrontendConnectionClosed.Inc()
	})
	return err
}

// Accept implements Listener.Accept
func (l *Listener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		metrics.FrontendConnectionFailed.Inc()
		return c, err
	}
	metrics.FrontendActiveConnections.Inc()
	metrics.FrontendConnectionAccepted.Inc()
	return &observedConnection{Conn: c}, nil
}

// New creates a new network listener which obeys the configured max
// connection limit and monitors connections with prometheus metrics.
//
// The limit is enforced by wrapping the listener with a
// netutil.LimitListener, which simply blocks Accept whenever clients go
// above the limit, until resources become available.
func New(name, listenAddress string, listenPort, connectionsLimit int) (*Listener, error) {
	l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", listenAddress, listenPort))
	if err != nil {
		// so we can exit one level above, this usually means that the port is in use
		return nil, err
	}
	if connectionsLimit > 0 {
		l = netutil.LimitListener(l, connectionsLimit)
		metrics.FrontendMaxConnections.Set(float64(connectionsLimit))
	}
	logger.Debug("listener created", logging.Pairs{
		"listenerName":     name,
		"connectionsLimit": connectionsLimit,
		"address":          l.Addr().String(),
	})
	return &Listener{Listener: l, Name: name}, nil
}

// ServeHTTP serves handler at path on a new listener until ctx is done
func ServeHTTP(ctx context.Context, name, address string, port int, path string,
	handler http.Handler) error {
	l, err := New(name, address, port, 0)
	if err != nil {
		logger.Error("http listener startup failed",
			logging.Pairs{"listenerName": name, "detail": err})
		return err
	}
	return serveHTTP(ctx, l, path, handler)
}

func serveHTTP(ctx context.Context, l *Listener, path string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	svr := &http.Server{Handler: mux, ReadHeaderTimeout: time.Second * 10}
	stop := context.AfterFunc(ctx, func() {
		sctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		svr.Shutdown(sctx)
	})
	defer stop()

	logger.Info("http listener starting",
		logging.Pairs{"listenerName": l.Name, "address": l.Addr().String()})
	err := svr.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	logger.Error("http listener stopping",
		logging.Pairs{"listenerName": l.Name, "detail": err})
	return err
}
