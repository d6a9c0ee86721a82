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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	bo "github.com/jwx-server/jwx/pkg/behaviors/options"
	d "github.com/jwx-server/jwx/pkg/config/defaults"
	do "github.com/jwx-server/jwx/pkg/dispatcher/options"
	fo "github.com/jwx-server/jwx/pkg/frontend/options"
	lo "github.com/jwx-server/jwx/pkg/observability/logging/options"
	mo "github.com/jwx-server/jwx/pkg/observability/metrics/options"
	to "github.com/jwx-server/jwx/pkg/observability/tracing/options"

	"gopkg.in/yaml.v3"
)

// Load returns the Application Configuration, starting with a default config,
// then overriding with any provided config file, then env vars, and finally flags.
// The returned Config carries the parsed Flags even when an error is returned,
// unless the flags themselves could not be parsed.
func Load(applicationName string, arguments []string) (*Config, error) {
	c := NewConfig()
	flags, err := parseFlags(applicationName, arguments)
	if err != nil {
		return nil, err
	}
	c.Flags = flags
	if flags.PrintVersion || flags.PrintUsage {
		return c, nil
	}
	c.configDir = flags.ConfigDir

	path := c.configPath(flags.ConfigName)
	if err := c.loadFile(path); err != nil {
		// a missing default config file leaves the defaults in place
		if flags.customPath || !errors.Is(err, fs.ErrNotExist) {
			return c, err
		}
		c.LoaderWarnings = append(c.LoaderWarnings,
			fmt.Sprintf("no config file at %s, using defaults", path))
	}

	c.loadEnvVars()
	c.loadFlags(flags)
	c.resolvePaths()
	return c, nil
}

// configPath resolves the config name. A relative name that does not exist
// relative to the working directory is taken relative to the config dir.
func (c *Config) configPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return filepath.Join(c.configDir, name)
}

// loadFile loads application configuration from a YAML- or Lua-formatted file.
func (c *Config) loadFile(path string) error {
	if strings.HasSuffix(path, ".lua") {
		if _, err := os.Stat(path); err != nil {
			return err
		}
		if err := c.loadLuaConfig(path); err != nil {
			return err
		}
		c.configFilePath = path
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := c.loadYAMLConfig(b); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	c.configFilePath = path
	return nil
}

// loadYAMLConfig loads application configuration from a YAML-formatted byte slice.
func (c *Config) loadYAMLConfig(b []byte) error {
	if err := yaml.Unmarshal(b, c); err != nil {
		return err
	}
	c.setDefaults()
	return nil
}

// setDefaults restores any section that the file set to null
func (c *Config) setDefaults() {
	if c.Main == nil {
		c.Main = &MainConfig{ServerName: d.DefaultServerName, ContentRoot: d.DefaultContentRoot}
	}
	if c.Frontend == nil {
		c.Frontend = fo.New()
	}
	if c.Dispatcher == nil {
		c.Dispatcher = do.New()
	}
	if c.Endpoints == nil {
		c.Endpoints = make(map[string]*bo.Options)
	}
	if c.Logging == nil {
		c.Logging = lo.New()
	}
	if c.Metrics == nil {
		c.Metrics = mo.New()
	}
	if c.Tracing == nil {
		c.Tracing = to.New()
	}
}
