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

// Package instance describes the role of the running jwx process
package instance

import (
	"os"

	"github.com/jwx-server/jwx/pkg/config"
	"github.com/jwx-server/jwx/pkg/daemon/procman"
	"github.com/jwx-server/jwx/pkg/dispatcher/isolation"
	"github.com/jwx-server/jwx/pkg/observability/tracing"
)

// Role is the part a jwx process plays
type Role string

const (
	// RoleListener accepts connections; it is the process a user starts
	RoleListener Role = "listener"
	// RoleDispatcher runs the dispatcher loop in a child process
	RoleDispatcher Role = "dispatcher"
	// RoleUnit serves exactly one dynamic request in a child process
	RoleUnit Role = "unit"
)

// LogInstance returns the name distinguishing the role's log file, empty for
// the listener
func (r Role) LogInstance() string {
	if r == RoleListener {
		return ""
	}
	return string(r)
}

// ServerInstance holds the configuration and runtime resources of a process
type ServerInstance struct {
	Config *config.Config
	Role   Role
	// Token is the unit's request id or the dispatcher's login value
	Token  string
	Tracer *tracing.Tracer
}

// New returns a ServerInstance whose Role is read from the environment. The
// role variables are removed so that children of this process do not
// inherit them.
func New(conf *config.Config) *ServerInstance {
	si := &ServerInstance{Config: conf, Role: RoleListener}
	if id, ok := os.LookupEnv(isolation.EnvUnitID); ok {
		si.Role, si.Token = RoleUnit, id
	} else if v, ok := os.LookupEnv(procman.EnvDispatcher); ok {
		si.Role, si.Token = RoleDispatcher, v
	}
	os.Unsetenv(isolation.EnvUnitID)
	os.Unsetenv(procman.EnvDispatcher)
	return si
}
