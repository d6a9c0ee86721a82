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

// Package defaults holds the default values of the top-level configuration
package defaults

const (
	// DefaultConfigDir is the directory holding the config file and the
	// relative script paths it names
	DefaultConfigDir = "."
	// DefaultConfigName is the config file name within DefaultConfigDir
	DefaultConfigName = "jwx.yaml"
	// DefaultContentRoot is the directory served as static content
	DefaultContentRoot = "www"
	// DefaultServerName is sent as the Server header
	DefaultServerName = "jwx"
)
