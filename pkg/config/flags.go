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
	"flag"
	"io"

	d "github.com/jwx-server/jwx/pkg/config/defaults"
	"github.com/jwx-server/jwx/pkg/config/types"
)

const (
	// Command-line flags
	cfContentRoot = "content-root"
	cfPort        = "port"
	cfConfigDir   = "config-dir"
	cfConfig      = "config"
	cfLogLevel    = "log-level"
	cfVersion     = "version"
	cfHelp        = "help"
	cfValidate    = "validate-config"
)

// Flags holds the values for whitelisted flags
type Flags struct {
	PrintVersion   bool
	PrintUsage     bool
	ValidateConfig bool
	customPath     bool
	ListenPort     int
	ContentRoot    string
	ConfigDir      string
	ConfigName     string
	LogLevel       string
}

func parseFlags(applicationName string, arguments []string) (*Flags, error) {

	flags := &Flags{}
	flagSet := flag.NewFlagSet(applicationName, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	flagSet.BoolVar(&flags.PrintVersion, cfVersion, false,
		"Prints the jwx version")
	flagSet.BoolVar(&flags.PrintUsage, cfHelp, false,
		"Prints the usage text")
	flagSet.BoolVar(&flags.ValidateConfig, cfValidate, false,
		"Validates a jwx config and exits without running the server")
	flagSet.StringVar(&flags.ContentRoot, cfContentRoot, "",
		"Directory served as static content")
	flagSet.IntVar(&flags.ListenPort, cfPort, 0,
		"Port that the HTTP frontend will listen on")
	flagSet.StringVar(&flags.ConfigDir, cfConfigDir, "",
		"Directory holding the config file and the endpoint scripts")
	flagSet.StringVar(&flags.ConfigName, cfConfig, "",
		"Name or path of the config file (YAML, or Lua when ending in .lua)")
	flagSet.StringVar(&flags.LogLevel, cfLogLevel, "",
		"Level of Logging to use (debug, info, warn, error)")

	err := flagSet.Parse(arguments)
	if err != nil {
		return nil, err
	}
	if flags.ConfigName != "" {
		flags.customPath = true
	} else {
		flags.ConfigName = d.DefaultConfigName
	}
	if flags.ConfigDir == "" {
		flags.ConfigDir = d.DefaultConfigDir
	}
	return flags, nil
}

// loadFlags loads configuration from command line flags.
func (c *Config) loadFlags(flags *Flags) {
	if flags.ContentRoot != "" {
		c.Main.ContentRoot = types.EnvString(flags.ContentRoot)
	}
	if flags.ListenPort > 0 {
		c.Frontend.ListenPort = flags.ListenPort
	}
	if flags.LogLevel != "" {
		c.Logging.LogLevel = flags.LogLevel
	}
}
