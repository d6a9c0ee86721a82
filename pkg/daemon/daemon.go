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

// Package daemon runs a jwx process in the role it was started for
package daemon

import (
	"context"
	"fmt"
	goruntime "runtime"
	"sync"

	"github.com/jwx-server/jwx/pkg/appinfo"
	"github.com/jwx-server/jwx/pkg/appinfo/usage"
	"github.com/jwx-server/jwx/pkg/daemon/instance"
	"github.com/jwx-server/jwx/pkg/daemon/setup"
	"github.com/jwx-server/jwx/pkg/daemon/signaling"
	"github.com/jwx-server/jwx/pkg/errors"
	"github.com/jwx-server/jwx/pkg/observability/metrics"
)

var mtx sync.Mutex
var wasStarted bool

// Start loads the configuration from args and runs this process's role until
// it finishes or a shutdown signal arrives
func Start(args []string) error {
	mtx.Lock()
	defer mtx.Unlock()
	if wasStarted {
		return errors.ErrServerAlreadyStarted
	}

	metrics.BuildInfo.WithLabelValues(goruntime.Version(),
		appinfo.GitCommitID, appinfo.Version).Set(1)

	conf, err := setup.LoadAndValidate(args)
	if err != nil {
		return err
	}

	// if it's a -version command, print version and exit
	if conf.Flags.PrintVersion {
		usage.PrintVersion()
		return nil
	}
	if conf.Flags.PrintUsage {
		usage.PrintUsage()
		return nil
	}
	// if it's a -validate command, print validation result
	if conf.Flags.ValidateConfig {
		fmt.Println("jwx configuration validation succeeded.")
		return nil
	}
	wasStarted = true

	si := instance.New(conf)
	if err := setup.ApplyConfig(si); err != nil {
		return err
	}
	defer setup.Shutdown(si)

	ctx, cancel := signaling.Context(context.Background())
	defer cancel()

	switch si.Role {
	case instance.RoleUnit:
		return setup.RunUnit(ctx, si)
	case instance.RoleDispatcher:
		return setup.RunDispatcher(ctx, si)
	}
	return setup.RunListener(ctx, si)
}
