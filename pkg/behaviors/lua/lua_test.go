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

package lua

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jwx-server/jwx/pkg/httpmsg"
	"github.com/jwx-server/jwx/pkg/router"

	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func parseRequest(t *testing.T, raw string) *httpmsg.Request {
	t.Helper()
	req, ok := httpmsg.ParseRequest([]byte(raw))
	require.True(t, ok)
	return req
}

const echoScript = `
function run_request(req)
  jwx.response.headers["Content-Type"] = "application/json"
  jwx.response.content = '{"id":"' .. request.params.id .. '","method":"' ..
    req.method .. '","q":"' .. request.query.q .. '","host":"' .. request.headers.Host .. '"}'
end
`

func TestHandleEcho(t *testing.T) {
	p := writeScript(t, t.TempDir(), "echo.lua", echoScript)
	b, err := New(p, nil)
	require.NoError(t, err)
	require.Equal(t, p, b.Script())

	req := parseRequest(t, "GET /api/users/42?q=x HTTP/1.0\r\nHost: h\r\n\r\n")
	resp, err := b.Handle(context.Background(), req, router.Params{"id": "42"})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, httpmsg.HTTP10, resp.Version)
	require.Equal(t, `{"id":"42","method":"GET","q":"x","host":"h"}`, string(resp.Content))
	require.Equal(t, "application/json", resp.Headers[httpmsg.HeaderContentType])
	require.Equal(t, "45", resp.Headers[httpmsg.HeaderContentLength])
}

func TestHandleStatusAndBody(t *testing.T) {
	p := writeScript(t, t.TempDir(), "created.lua", `
function run_request()
  jwx.response = { statusCode = 201, headers = { X = 1 }, content = request.content }
end
`)
	b, err := New(p, nil)
	require.NoError(t, err)
	req := parseRequest(t, "POST /things HTTP/1.1\r\n\r\npayload")
	resp, err := b.Handle(context.Background(), req, nil)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)
	require.Equal(t, "1", resp.Headers["X"])
	require.Equal(t, []byte("payload"), resp.Content)
}

func TestHandleIsolatedState(t *testing.T) {
	p := writeScript(t, t.TempDir(), "counter.lua", `
counter = (counter or 0) + 1
function run_request()
  jwx.response.content = tostring(counter)
end
`)
	b, err := New(p, nil)
	require.NoError(t, err)
	req := parseRequest(t, "GET / HTTP/1.1\r\n\r\n")
	for i := 0; i < 3; i++ {
		resp, err := b.Handle(context.Background(), req, nil)
		require.NoError(t, err)
		require.Equal(t, "1", string(resp.Content))
	}
}

func TestHandleErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		script string
	}{
		{"raises", `function run_request() error("bad things") end`},
		{"no entry point", `x = 1`},
		{"bad status", `function run_request() jwx.response.statusCode = "abc" end`},
		{"out of range status", `function run_request() jwx.response.statusCode = 70000 end`},
		{"response not a table", `function run_request() jwx.response = 5 end`},
		{"bad content", `function run_request() jwx.response.content = {} end`},
		{"top level error", `error("at load")`},
	}
	req := parseRequest(t, "GET / HTTP/1.1\r\n\r\n")
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b, err := New(writeScript(t, dir, test.name+".lua", test.script), nil)
			require.NoError(t, err)
			_, err = b.Handle(context.Background(), req, nil)
			require.Error(t, err)
		})
	}
}

func TestNewErrors(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.lua"), nil)
	require.Error(t, err)
	_, err = New(writeScript(t, t.TempDir(), "syntax.lua", "function ("), nil)
	require.Error(t, err)
}

func TestLibraryFolders(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "lib/greet.lua", `
local M = {}
function M.hello(n) return "hello " .. n end
return M
`)
	p := writeScript(t, dir, "uses_lib.lua", `
local greet = require("greet")
function run_request()
  jwx.response.content = greet.hello(request.params.name)
end
`)
	b, err := New(p, []string{filepath.Join(dir, "lib")})
	require.NoError(t, err)
	resp, err := b.Handle(context.Background(), parseRequest(t, "GET /x HTTP/1.1\r\n\r\n"),
		router.Params{"name": "jwx"})
	require.NoError(t, err)
	require.Equal(t, "hello jwx", string(resp.Content))
}

func TestPackagePath(t *testing.T) {
	require.Equal(t, "", PackagePath(nil))
	require.Equal(t, filepath.Join("a", "?.lua")+";b/?.luac;",
		PackagePath([]string{"a", "", "b/?.luac"}))
}

func TestHandleTimeout(t *testing.T) {
	p := writeScript(t, t.TempDir(), "spin.lua", `function run_request() while true do end end`)
	b, err := New(p, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = b.Handle(ctx, parseRequest(t, "GET / HTTP/1.1\r\n\r\n"), nil)
	require.Error(t, err)
}
