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

// Package usage prints the command line usage and version text
package usage

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/jwx-server/jwx/pkg/appinfo"
)

const usageText = `
jwx Usage:

 Print Version Info:
  jwx -version

 Serve a content root with the endpoints declared in a config file:
  jwx [-content-root ./www] [-port 4955] [-config-dir ./config] [-config jwx.yaml] [-log-level debug|info|warn|error]

------

 The config file may be YAML (jwx.yaml) or Lua (any name ending in .lua).
 Lua config files may call:
   config_set_endpoint("/api/users/{id}", "users.lua")
   config_remove_endpoint("/api/users/{id}")
   config_add_library_folder("lib")

 Endpoint script paths and library folders are relative to -config-dir.

jwx listens on port 4955 by default. Set in a config file, or override using -port.
`

// Version returns the formatted version string
func Version() string {
	return fmt.Sprintf("%s version: %s, buildInfo: %s %s, goVersion: %s",
		appinfo.Name, appinfo.Version,
		appinfo.BuildTime, appinfo.GitCommitID,
		runtime.Version(),
	)
}

// PrintVersion writes the version string to stdout
func PrintVersion() {
	fmt.Println(Version())
}

// PrintUsage writes the version string and usage text to stdout
func PrintUsage() {
	FprintUsage(os.Stdout)
}

// FprintUsage writes the version string and usage text to w
func FprintUsage(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, Version())
	fmt.Fprint(w, usageText+"\n")
}
