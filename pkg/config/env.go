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

package config

import (
	"os"
	"strconv"

	"github.com/jwx-server/jwx/pkg/config/types"
)

const (
	// Environment variables
	evContentRoot    = "JWX_CONTENT_ROOT"
	evPort           = "JWX_PORT"
	evMetricsPort    = "JWX_METRICS_PORT"
	evLogLevel       = "JWX_LOG_LEVEL"
	evDispatcherMode = "JWX_DISPATCHER_MODE"
	evUnitMode       = "JWX_UNIT_MODE"
)

func (c *Config) loadEnvVars() {
	if x := os.Getenv(evContentRoot); x != "" {
		c.Main.ContentRoot = types.EnvString(x)
	}

	if x := os.Getenv(evPort); x != "" {
		if y, err := strconv.ParseInt(x, 10, 32); err == nil {
			c.Frontend.ListenPort = int(y)
		}
	}

	if x := os.Getenv(evMetricsPort); x != "" {
		if y, err := strconv.ParseInt(x, 10, 32); err == nil {
			c.Metrics.ListenPort = int(y)
		}
	}

	if x := os.Getenv(evLogLevel); x != "" {
		c.Logging.LogLevel = x
	}

	if x := os.Getenv(evDispatcherMode); x != "" {
		c.Dispatcher.DispatcherMode = x
	}

	if x := os.Getenv(evUnitMode); x != "" {
		c.Dispatcher.UnitMode = x
	}
}
