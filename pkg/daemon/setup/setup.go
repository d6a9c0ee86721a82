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

// Package setup builds the runtime pieces of each jwx process role from a
// loaded configuration
package setup

import (
	"context"
	"fmt"
	"os"
	goruntime "runtime"
	"time"

	"github.com/jwx-server/jwx/pkg/appinfo"
	"github.com/jwx-server/jwx/pkg/appinfo/usage"
	"github.com/jwx-server/jwx/pkg/behaviors"
	"github.com/jwx-server/jwx/pkg/config"
	"github.com/jwx-server/jwx/pkg/config/validate"
	"github.com/jwx-server/jwx/pkg/daemon/instance"
	"github.com/jwx-server/jwx/pkg/dispatcher"
	"github.com/jwx-server/jwx/pkg/dispatcher/isolation"
	do "github.com/jwx-server/jwx/pkg/dispatcher/options"
	"github.com/jwx-server/jwx/pkg/ipc/datachan"
	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
	tr "github.com/jwx-server/jwx/pkg/observability/tracing/registration"
	"github.com/jwx-server/jwx/pkg/router/trie"
)

// EnvFIFODir carries the FIFO directory chosen by the listener to unit
// processes
const EnvFIFODir = "JWX_FIFO_DIR"

// LoadAndValidate loads the configuration from args and validates it.
// Version and usage invocations return the configuration unvalidated.
func LoadAndValidate(args []string) (*config.Config, error) {
	conf, err := config.Load(appinfo.Name, args)
	if err != nil {
		fmt.Println("\nERROR: Could not load configuration:", err.Error())
		if conf == nil {
			usage.PrintUsage()
		}
		return nil, err
	}
	if conf.Flags.PrintVersion || conf.Flags.PrintUsage {
		return conf, nil
	}
	if dir, ok := os.LookupEnv(EnvFIFODir); ok {
		conf.Dispatcher.FIFODir = dir
	}
	if err = validate.Validate(conf); err != nil {
		fmt.Println("\nERROR: Invalid configuration:", err.Error())
		return nil, err
	}
	return conf, nil
}

// ApplyConfig initializes the process-wide logger, server name and tracer
// for si
func ApplyConfig(si *instance.ServerInstance) error {
	conf := si.Config
	appinfo.SetServer(conf.Main.ServerName)
	initLogger(si)

	tracer, err := tr.GetTracer(conf.Tracing, false)
	if err != nil {
		logger.Error("tracing registration failed", logging.Pairs{"detail": err})
		return err
	}
	si.Tracer = tracer
	return nil
}

func initLogger(si *instance.ServerInstance) {
	c := si.Config
	logger.SetLogger(logging.New(c.Logging, si.Role.LogInstance()))
	if si.Role == instance.RoleUnit {
		return
	}
	logger.Info("application loaded from configuration",
		logging.Pairs{
			"name":      appinfo.Name,
			"version":   appinfo.Version,
			"role":      string(si.Role),
			"goVersion": goruntime.Version(),
			"goArch":    goruntime.GOARCH,
			"goOS":      goruntime.GOOS,
			"commitID":  appinfo.GitCommitID,
			"buildTime": appinfo.BuildTime,
			"logLevel":  c.Logging.LogLevel,
			"config":    c.ConfigFilePath(),
			"pid":       os.Getpid(),
		},
	)
}

// Shutdown flushes the tracer and closes the logger
func Shutdown(si *instance.ServerInstance) {
	if si.Tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := si.Tracer.Shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown failed", logging.Pairs{"detail": err})
		}
	}
	logger.Logger().Close()
}

// NewTransport returns the data channel transport for the dispatcher
// options: in-memory when nothing crosses a process boundary, named pipes
// otherwise
func NewTransport(o *do.Options) (datachan.Transport, error) {
	if o.InProcess() {
		return datachan.NewMemory(), nil
	}
	return datachan.NewFIFO(o.FIFODir)
}

// NewUnit builds the handler router from the configured endpoints and
// returns a Unit serving requests with it over tr
func NewUnit(si *instance.ServerInstance, tr datachan.Transport) (*dispatcher.Unit, error) {
	conf := si.Config
	table, err := behaviors.BuildTable(conf.Endpoints, conf.LibraryFolders)
	if err != nil {
		return nil, err
	}
	return &dispatcher.Unit{
		Transport:        tr,
		Router:           trie.New(table),
		MaxPayload:       uint64(conf.Dispatcher.MaxPayloadBytes),
		HandshakeTimeout: conf.Dispatcher.HandshakeTimeout(),
		Timeout:          conf.Dispatcher.UnitTimeout(),
		Server:           conf.Main.ServerName,
		Tracer:           si.Tracer,
	}, nil
}

// NewIsolator returns the Isolator for unitMode. Goroutine units serve over
// tr in this process; process units are this executable started again with
// the same arguments, told the FIFO directory through EnvFIFODir.
func NewIsolator(ctx context.Context, si *instance.ServerInstance, unitMode string,
	tr datachan.Transport) (isolation.Isolator, error) {
	conf := si.Config
	switch unitMode {
	case isolation.ModeGoroutine:
		u, err := NewUnit(si, tr)
		if err != nil {
			return nil, err
		}
		return isolation.NewGoroutine(ctx, u.Serve), nil
	case isolation.ModeProcess:
		exe, err := executable()
		if err != nil {
			return nil, err
		}
		var env []string
		if f, ok := tr.(*datachan.FIFO); ok {
			env = append(env, EnvFIFODir+"="+f.Dir())
		}
		// a unit may spend a handshake on each channel plus its handler run
		timeout := conf.Dispatcher.UnitTimeout() + 2*conf.Dispatcher.HandshakeTimeout()
		return isolation.NewProcess(ctx, exe, processArgs(), env, timeout), nil
	}
	return nil, fmt.Errorf("unknown unit mode %q", unitMode)
}
