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
	"path/filepath"

	luab "github.com/jwx-server/jwx/pkg/behaviors/lua"
	bo "github.com/jwx-server/jwx/pkg/behaviors/options"

	lua "github.com/yuin/gopher-lua"
)

// Globals exposed to a Lua config file
const (
	luaConfigPath       = "internal_config_path"
	luaSetEndpoint      = "config_set_endpoint"
	luaRemoveEndpoint   = "config_remove_endpoint"
	luaAddLibraryFolder = "config_add_library_folder"
)

// loadLuaConfig runs a Lua config file. The script edits the endpoint table
// and library folders through the config_* functions; everything else keeps
// its default or comes from env vars and flags.
func (c *Config) loadLuaConfig(path string) error {
	L := lua.NewState()
	defer L.Close()

	folders := make([]string, len(c.LibraryFolders))
	for i, f := range c.LibraryFolders {
		if !filepath.IsAbs(f) {
			f = filepath.Join(c.configDir, f)
		}
		folders[i] = f
	}
	luab.PrependPackagePath(L, luab.PackagePath(folders))

	L.SetGlobal(luaConfigPath, lua.LString(c.configDir))
	L.SetGlobal(luaSetEndpoint, L.NewFunction(func(L *lua.LState) int {
		c.Endpoints[L.CheckString(1)] = bo.New(L.CheckString(2))
		return 0
	}))
	L.SetGlobal(luaRemoveEndpoint, L.NewFunction(func(L *lua.LState) int {
		delete(c.Endpoints, L.CheckString(1))
		return 0
	}))
	L.SetGlobal(luaAddLibraryFolder, L.NewFunction(func(L *lua.LState) int {
		c.LibraryFolders = append(c.LibraryFolders, L.CheckString(1))
		return 0
	}))

	return L.DoFile(path)
}
