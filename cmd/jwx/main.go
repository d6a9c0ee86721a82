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

// Package main is the main package for the jwx application
package main

import (
	"fmt"
	"os"

	"github.com/jwx-server/jwx/pkg/appinfo"
	"github.com/jwx-server/jwx/pkg/daemon"
)

var (
	applicationGitCommitID string
	applicationBuildTime   string
)

const (
	applicationName    = "jwx"
	applicationVersion = "0.3.0"
)

var exitFunc func() = exitFatal

func main() {
	appinfo.Set(applicationName, applicationVersion,
		applicationBuildTime, applicationGitCommitID)
	if err := daemon.Start(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "jwx: "+err.Error())
		exitFunc()
	}
}

func exitFatal() {
	os.Exit(1)
}
