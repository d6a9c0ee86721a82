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

// Package config provides jwx configuration abilities, including parsing
// and printing configuration files, command line parameters, and environment
// variables, as well as default values.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	bo "github.com/jwx-server/jwx/pkg/behaviors/options"
	d "github.com/jwx-server/jwx/pkg/config/defaults"
	"github.com/jwx-server/jwx/pkg/config/types"
	do "github.com/jwx-server/jwx/pkg/dispatcher/options"
	"github.com/jwx-server/jwx/pkg/errors"
	fo "github.com/jwx-server/jwx/pkg/frontend/options"
	lo "github.com/jwx-server/jwx/pkg/observability/logging/options"
	mo "github.com/jwx-server/jwx/pkg/observability/metrics/options"
	to "github.com/jwx-server/jwx/pkg/observability/tracing/options"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v2"
)

// Config is the main configuration object
type Config struct {
	// Main is the primary MainConfig section
	Main *MainConfig `yaml:"main,omitempty"`
	// Frontend configures the HTTP listener
	Frontend *fo.Options `yaml:"frontend,omitempty"`
	// Dispatcher configures dispatcher placement and unit isolation
	Dispatcher *do.Options `yaml:"dispatcher,omitempty"`
	// Endpoints maps a route pattern to the handler serving it
	Endpoints map[string]*bo.Options `yaml:"endpoints,omitempty"`
	// LibraryFolders are prepended to the handler scripts' package.path
	LibraryFolders []string `yaml:"library_folders,omitempty"`
	// Logging provides configurations that affect logging behavior
	Logging *lo.Options `yaml:"logging,omitempty"`
	// Metrics provides configurations for collecting Metrics about the application
	Metrics *mo.Options `yaml:"metrics,omitempty"`
	// Tracing provides the distributed tracing configuration
	Tracing *to.Options `yaml:"tracing,omitempty"`

	// Flags holds the parsed command line
	Flags *Flags `yaml:"-"`

	LoaderWarnings []string `yaml:"-"`

	configFilePath string
	configDir      string
}

// MainConfig is a collection of general configuration values.
type MainConfig struct {
	// ServerName is sent as the Server header of every response
	ServerName string `yaml:"server_name,omitempty"`
	// ContentRoot is the directory served as static content. Environment
	// variable references are expanded.
	ContentRoot types.EnvString `yaml:"content_root,omitempty"`
}

// NewConfig returns a Config initialized with default values.
func NewConfig() *Config {
	return &Config{
		Main: &MainConfig{
			ServerName:  d.DefaultServerName,
			ContentRoot: d.DefaultContentRoot,
		},
		Frontend:       fo.New(),
		Dispatcher:     do.New(),
		Endpoints:      make(map[string]*bo.Options),
		Logging:        lo.New(),
		Metrics:        mo.New(),
		Tracing:        to.New(),
		LoaderWarnings: make([]string, 0),
		configDir:      d.DefaultConfigDir,
	}
}

// Clone returns an exact copy of the subject *Config
func (c *Config) Clone() *Config {
	nc := NewConfig()
	mc := *c.Main
	nc.Main = &mc
	nc.Frontend = c.Frontend.Clone()
	nc.Dispatcher = c.Dispatcher.Clone()
	for k, v := range c.Endpoints {
		if v != nil {
			v = v.Clone()
		}
		nc.Endpoints[k] = v
	}
	nc.LibraryFolders = slices.Clone(c.LibraryFolders)
	nc.Logging = c.Logging.Clone()
	nc.Metrics = c.Metrics.Clone()
	nc.Tracing = c.Tracing.Clone()
	nc.Flags = c.Flags
	nc.LoaderWarnings = slices.Clone(c.LoaderWarnings)
	nc.configFilePath = c.configFilePath
	nc.configDir = c.configDir
	return nc
}

// Validate checks every section of the Config
func (c *Config) Validate() error {
	if c.Main == nil || c.Frontend == nil || c.Dispatcher == nil ||
		c.Logging == nil || c.Metrics == nil || c.Tracing == nil {
		return errors.ErrInvalidOptions
	}
	if err := c.Frontend.Validate(); err != nil {
		return err
	}
	if err := c.Dispatcher.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("%w: log_level %q", err, c.Logging.LogLevel)
	}
	if c.Metrics.ListenPort < 0 || c.Metrics.ListenPort > 65535 {
		return fmt.Errorf("%w: metrics %d", errors.ErrInvalidPort, c.Metrics.ListenPort)
	}
	if err := c.Tracing.Validate(); err != nil {
		return err
	}
	for route, o := range c.Endpoints {
		if !strings.HasPrefix(route, "/") {
			return fmt.Errorf("%w: endpoint route %q must begin with /",
				errors.ErrInvalidOptions, route)
		}
		if o == nil || o.Script == "" {
			return fmt.Errorf("%w: endpoint %q has no script", errors.ErrInvalidOptions, route)
		}
	}
	return nil
}

// resolvePaths makes relative script paths and library folders relative to
// the config dir
func (c *Config) resolvePaths() {
	for _, o := range c.Endpoints {
		if o != nil && o.Script != "" && !filepath.IsAbs(o.Script) {
			o.Script = filepath.Join(c.configDir, o.Script)
		}
	}
	for i, f := range c.LibraryFolders {
		if f != "" && !filepath.IsAbs(f) {
			c.LibraryFolders[i] = filepath.Join(c.configDir, f)
		}
	}
}

// ConfigFilePath returns the file path from which this configuration is based
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// ConfigDir returns the directory against which relative paths are resolved
func (c *Config) ConfigDir() string {
	return c.configDir
}

func (c *Config) String() string {
	cp := c.Clone()
	if cp.Tracing.CollectorPass != "" {
		cp.Tracing.CollectorPass = "*****"
	}
	bytes, err := yaml.Marshal(cp)
	if err == nil {
		return string(bytes)
	}
	return ""
}
