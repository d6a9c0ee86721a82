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

// Package behaviors turns configured endpoints into the route table used by
// the dispatcher
package behaviors

import (
	"fmt"

	"github.com/jwx-server/jwx/pkg/behaviors/lua"
	"github.com/jwx-server/jwx/pkg/behaviors/options"
	"github.com/jwx-server/jwx/pkg/errors"
	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
	"github.com/jwx-server/jwx/pkg/router"
)

// KindLua is the kind of Lua script behaviors
const KindLua = "lua"

// Constructor builds a Handler from endpoint options
type Constructor func(o *options.Options, libraryFolders []string) (router.Handler, error)

var constructors = map[string]Constructor{
	KindLua: func(o *options.Options, libraryFolders []string) (router.Handler, error) {
		return lua.New(o.Script, libraryFolders)
	},
}

// SupportedKinds returns the registered behavior kinds
func SupportedKinds() []string {
	out := make([]string, 0, len(constructors))
	for k := range constructors {
		out = append(out, k)
	}
	return out
}

// New returns the Handler for a single endpoint
func New(o *options.Options, libraryFolders []string) (router.Handler, error) {
	c, ok := constructors[o.ResolvedKind()]
	if !ok {
		return nil, errors.ErrUnknownBehaviorKind
	}
	return c(o, libraryFolders)
}

// BuildTable builds a route table from endpoint options. Endpoints of an
// unknown kind are logged and skipped; a handler that fails to build fails
// the whole table.
func BuildTable(endpoints map[string]*options.Options,
	libraryFolders []string) (router.Table, error) {
	t := make(router.Table, len(endpoints))
	for path, o := range endpoints {
		if o == nil {
			continue
		}
		h, err := New(o, libraryFolders)
		if err == errors.ErrUnknownBehaviorKind {
			logger.Warn("unknown behavior type for endpoint",
				logging.Pairs{"route": path, "script": o.Script,
					"supportedKinds": SupportedKinds()})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("endpoint %s: %w", path, err)
		}
		t[path] = h
	}
	return t, nil
}
