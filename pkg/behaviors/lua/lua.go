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

// Package lua runs endpoint handlers written in Lua. A script is compiled
// once; every request executes it in a fresh interpreter state that shares
// nothing with other requests.
package lua

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwx-server/jwx/pkg/httpmsg"
	"github.com/jwx-server/jwx/pkg/router"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

const (
	// EntryPoint is the global function each script must define
	EntryPoint = "run_request"
	// RequestGlobal is the global holding the request table
	RequestGlobal = "request"
	// ModuleGlobal is the global table holding jwx.response
	ModuleGlobal = "jwx"
)

var _ router.Handler = &Behavior{}

// Behavior is a router.Handler backed by a compiled Lua script
type Behavior struct {
	script      string
	proto       *lua.FunctionProto
	packagePath string
}

// New compiles the script at path. libraryFolders are prepended to the
// interpreter's package.path.
func New(path string, libraryFolders []string) (*Behavior, error) {
	proto, err := Compile(path)
	if err != nil {
		return nil, err
	}
	return &Behavior{
		script:      path,
		proto:       proto,
		packagePath: PackagePath(libraryFolders),
	}, nil
}

// Compile parses and compiles the Lua file at path
func Compile(path string) (*lua.FunctionProto, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	chunk, err := parse.Parse(f, path)
	if err != nil {
		return nil, err
	}
	return lua.Compile(chunk, path)
}

// PackagePath renders library folders as package.path entries. A folder that
// already holds a '?' template is used as-is.
func PackagePath(folders []string) string {
	var sb strings.Builder
	for _, f := range folders {
		if f == "" {
			continue
		}
		if !strings.Contains(f, "?") {
			f = filepath.Join(f, "?.lua")
		}
		sb.WriteString(f)
		sb.WriteByte(';')
	}
	return sb.String()
}

// PrependPackagePath prefixes package.path in L with path
func PrependPackagePath(L *lua.LState, path string) {
	if path == "" {
		return
	}
	pkg, ok := L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return
	}
	L.SetField(pkg, "path", lua.LString(path+lua.LVAsString(L.GetField(pkg, "path"))))
}

// Script returns the path of the compiled script
func (b *Behavior) Script() string {
	return b.script
}

func (b *Behavior) Handle(ctx context.Context, req *httpmsg.Request,
	params router.Params) (*httpmsg.Response, error) {
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	PrependPackagePath(L, b.packagePath)

	resp := L.NewTable()
	L.SetField(resp, "statusCode", lua.LNumber(200))
	L.SetField(resp, "headers", L.NewTable())
	L.SetField(resp, "content", lua.LString(""))
	mod := L.NewTable()
	L.SetField(mod, "response", resp)
	L.SetGlobal(ModuleGlobal, mod)

	reqTable := requestTable(L, req, params)
	L.SetGlobal(RequestGlobal, reqTable)

	L.Push(L.NewFunctionFromProto(b.proto))
	if err := L.PCall(0, 0, nil); err != nil {
		return nil, err
	}
	fn := L.GetGlobal(EntryPoint)
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%s does not define %s", b.script, EntryPoint)
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, reqTable); err != nil {
		return nil, err
	}
	return readResponse(L, req.Version)
}

func stringTable(L *lua.LState, m map[string]string) *lua.LTable {
	t := L.CreateTable(0, len(m))
	for k, v := range m {
		t.RawSetString(k, lua.LString(v))
	}
	return t
}

func requestTable(L *lua.LState, req *httpmsg.Request, params router.Params) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("method", lua.LString(req.Method.String()))
	t.RawSetString("version", lua.LString(req.Version.String()))
	t.RawSetString("uri", lua.LString(req.Path()))
	var query map[string]string
	if req.URL != nil {
		query = req.URL.Query
	}
	t.RawSetString("query", stringTable(L, query))
	t.RawSetString("headers", stringTable(L, req.Headers))
	t.RawSetString("params", stringTable(L, params))
	t.RawSetString("content", lua.LString(req.Content))
	return t
}

func readResponse(L *lua.LState, v httpmsg.Version) (*httpmsg.Response, error) {
	mod, ok := L.GetGlobal(ModuleGlobal).(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("global %s is not a table", ModuleGlobal)
	}
	resp, ok := L.GetField(mod, "response").(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%s.response is not a table", ModuleGlobal)
	}
	code, ok := L.GetField(resp, "statusCode").(lua.LNumber)
	if !ok || code < 0 || code > 65535 {
		return nil, fmt.Errorf("invalid %s.response.statusCode: %s", ModuleGlobal,
			L.GetField(resp, "statusCode").String())
	}
	headers := httpmsg.Headers{}
	if ht, ok := L.GetField(resp, "headers").(*lua.LTable); ok {
		ht.ForEach(func(k, val lua.LValue) {
			headers[k.String()] = val.String()
		})
	}
	var content []byte
	switch c := L.GetField(resp, "content").(type) {
	case lua.LString:
		content = []byte(string(c))
	case lua.LNumber:
		content = []byte(c.String())
	case *lua.LNilType:
	default:
		return nil, fmt.Errorf("invalid %s.response.content type %s", ModuleGlobal, c.Type())
	}
	return httpmsg.NewResponse(int(code), headers, content, v), nil
}
