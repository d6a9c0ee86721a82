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
	"net/http"

	"github.com/jwx-server/jwx/pkg/daemon/instance"
	"github.com/jwx-server/jwx/pkg/daemon/procman"
	do "github.com/jwx-server/jwx/pkg/dispatcher/options"
	"github.com/jwx-server/jwx/pkg/frontend"
	"github.com/jwx-server/jwx/pkg/frontend/dynamic"
	"github.com/jwx-server/jwx/pkg/frontend/listener"
	"github.com/jwx-server/jwx/pkg/frontend/static"
	"github.com/jwx-server/jwx/pkg/httpmsg"
	"github.com/jwx-server/jwx/pkg/ipc/bootstrap"
	"github.com/jwx-server/jwx/pkg/ipc/datachan"
	"github.com/jwx-server/jwx/pkg/ipc/ids"
	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
	"github.com/jwx-server/jwx/pkg/observability/metrics"
	"github.com/jwx-server/jwx/pkg/observability/pprof"

	"golang.org/x/sync/errgroup"
)

// RunListener serves the frontend, the metrics listener and the dispatcher
// until ctx is done. A dispatcher that fails to start or later dies leaves
// the frontend serving static content only.
func RunListener(ctx context.Context, si *instance.ServerInstance) error {
	conf := si.Config

	tr, err := NewTransport(conf.Dispatcher)
	if err != nil {
		return err
	}
	d, err := StartDispatcher(si, tr)
	if err != nil {
		logger.Error("dispatcher startup failed, dynamic requests will fail",
			logging.Pairs{"mode": conf.Dispatcher.DispatcherMode, "detail": err})
	} else if err = d.Poll(ctx, conf.Dispatcher.ExchangeTimeout()); err != nil {
		logger.Error("dispatcher did not answer poll, dynamic requests will fail",
			logging.Pairs{"mode": d.Mode, "detail": err})
	} else {
		logger.Info("dispatcher started",
			logging.Pairs{"mode": d.Mode, "pid": d.PID, "unitMode": conf.Dispatcher.UnitMode,
				"transport": tr.Kind()})
	}

	l, err := listener.New("frontend", conf.Frontend.ListenAddress, conf.Frontend.ListenPort,
		conf.Frontend.ConnectionsLimit)
	if err != nil {
		logger.Error("frontend listener startup failed", logging.Pairs{"detail": err})
		if d != nil {
			d.Stop(conf.Dispatcher.ExchangeTimeout())
		}
		return err
	}
	svr := frontend.NewServer(NewHandler(si, d, tr))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svr.Serve(gctx, l)
	})
	if conf.Metrics.ListenPort > 0 {
		g.Go(func() error {
			return listener.ServeHTTP(gctx, "metrics", conf.Metrics.ListenAddress,
				conf.Metrics.ListenPort, "/", MetricsMux(si))
		})
	}
	if d != nil {
		g.Go(func() error {
			select {
			case <-d.Done():
				logger.Error("dispatcher terminated, dynamic requests will fail",
					logging.Pairs{"mode": d.Mode, "detail": d.Err()})
				<-gctx.Done()
				return nil
			case <-gctx.Done():
			}
			if err := d.Stop(conf.Dispatcher.ExchangeTimeout()); err != nil {
				logger.Warn("dispatcher stopped with error", logging.Pairs{"detail": err})
			}
			return nil
		})
	}
	return g.Wait()
}

// StartDispatcher places the dispatcher loop according to the dispatcher
// mode
func StartDispatcher(si *instance.ServerInstance, tr datachan.Transport) (*procman.Dispatcher, error) {
	o := si.Config.Dispatcher
	if o.DispatcherMode == do.ModeProcess {
		settings := bootstrap.Settings{UnitMode: o.UnitMode}
		if f, ok := tr.(*datachan.FIFO); ok {
			settings.FIFODir = f.Dir()
		}
		exe, err := executable()
		if err != nil {
			return nil, err
		}
		return procman.StartProcess(exe, processArgs(), settings, o.HandshakeTimeout())
	}
	// units outlive any one request, so they are bound to a context of their own
	iso, err := NewIsolator(context.Background(), si, o.UnitMode, tr)
	if err != nil {
		return nil, err
	}
	return procman.StartInProcess(iso), nil
}

// NewHandler returns the frontend connection handler. d may be nil, in which
// case only static content is served.
func NewHandler(si *instance.ServerInstance, d *procman.Dispatcher,
	tr datachan.Transport) *frontend.Handler {
	conf := si.Config
	h := &frontend.Handler{
		Options: conf.Frontend,
		Static:  static.New(conf.Main.ContentRoot.String(), conf.Frontend.EncodingsBitmap),
		DefaultHeaders: httpmsg.Headers{
			httpmsg.HeaderServer:     conf.Main.ServerName,
			httpmsg.HeaderConnection: "Keep-Alive",
		},
		Tracer: si.Tracer,
	}
	if d != nil {
		h.Dynamic = &dynamic.Client{
			Control:          d.Control,
			Transport:        tr,
			IDs:              ids.New(),
			ExchangeTimeout:  conf.Dispatcher.ExchangeTimeout(),
			HandshakeTimeout: conf.Dispatcher.HandshakeTimeout(),
			ResponseTimeout:  conf.Dispatcher.UnitTimeout() + conf.Dispatcher.HandshakeTimeout(),
			MaxPayload:       conf.Dispatcher.MaxPayloadBytes,
		}
	}
	return h
}

// MetricsMux routes /metrics, and the pprof endpoints when enabled
func MetricsMux(si *instance.ServerInstance) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if si.Config.Metrics.Pprof {
		pprof.RegisterRoutes("metrics", mux)
	}
	return mux
}
