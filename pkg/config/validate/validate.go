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

// Package validate checks a loaded Config by building everything it
// describes without starting anything
package validate

import (
	"errors"
	"fmt"

	"github.com/jwx-server/jwx/pkg/behaviors"
	"github.com/jwx-server/jwx/pkg/config"
	tr "github.com/jwx-server/jwx/pkg/observability/tracing/registration"
	"github.com/jwx-server/jwx/pkg/router/route"
	"github.com/jwx-server/jwx/pkg/router/trie"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Validate checks each config section, compiles every endpoint script and
// dry-runs the tracer registration
func Validate(c *config.Config) error {
	if c == nil {
		return errors.New("no configuration loaded")
	}
	for _, w := range c.LoaderWarnings {
		fmt.Println(w)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if _, err := tr.GetTracer(c.Tracing, true); err != nil {
		return err
	}
	table, err := behaviors.BuildTable(c.Endpoints, c.LibraryFolders)
	if err != nil {
		return err
	}
	for _, p := range UnreachableRoutes(c) {
		fmt.Printf("WARNING: endpoint route %q has an empty segment and will never match\n", p)
	}
	trie.New(table)
	if c.Frontend.ListenPort < 1 {
		return errors.New("no http listener configured")
	}
	return nil
}

// UnreachableRoutes returns the sorted endpoint routes that no request path
// can match
func UnreachableRoutes(c *config.Config) []string {
	var out []string
	for _, p := range maps.Keys(c.Endpoints) {
		if route.Parse(p).Unreachable() {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}
