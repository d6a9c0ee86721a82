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

package setup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	bo "github.com/jwx-server/jwx/pkg/behaviors/options"
	"github.com/jwx-server/jwx/pkg/config"
	"github.com/jwx-server/jwx/pkg/daemon/instance"
	"github.com/jwx-server/jwx/pkg/dispatcher/isolation"
	do "github.com/jwx-server/jwx/pkg/dispatcher/options"
	"github.com/jwx-server/jwx/pkg/frontend"
	"github.com/jwx-server/jwx/pkg/frontend/listener"
	"github.com/jwx-server/jwx/pkg/ipc/datachan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloScript = `
function run_request(req)
  jwx.response.headers["Content-Type"] = "text/plain"
  jwx.response.content = "hello " .. req.params.name
end
`

func testInstance(t *testing.T) *instance.ServerInstance {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "hello.lua")
	require.NoError(t, os.WriteFile(script, []byte(helloScript), 0o644))
	conf := config.NewConfig()
	conf.Main.ContentRoot = "."
	conf.Endpoints["/hello/{name}"] = bo.New(script)
	conf.Frontend.ReadPollMS = 5
	return &instance.ServerInstance{Config: conf, Role: instance.RoleListener}
}

func TestNewTransport(t *testing.T) {
	o := do.New()
	tr, err := NewTransport(o)
	require.NoError(t, err)
	assert.Equal(t, datachan.KindMemory, tr.Kind())

	if runtime.GOOS == "windows" {
		return
	}
	o.UnitMode = isolation.ModeProcess
	o.FIFODir = t.TempDir()
	tr, err = NewTransport(o)
	require.NoError(t, err)
	require.Equal(t, datachan.KindFIFO, tr.Kind())
	assert.Equal(t, o.FIFODir, tr.(*datachan.FIFO).Dir())
}

func TestNewIsolatorUnknownMode(t *testing.T) {
	si := testInstance(t)
	_, err := NewIsolator(context.Background(), si, "thread", datachan.NewMemory())
	assert.Error(t, err)
}

func TestNewUnitBadScript(t *testing.T) {
	si := testInstance(t)
	si.Config.Endpoints["/missing"] = bo.New(filepath.Join(t.TempDir(), "missing.lua"))
	_, err := NewUnit(si, datachan.NewMemory())
	assert.Error(t, err)
}

func TestNewHandlerStaticOnly(t *testing.T) {
	si := testInstance(t)
	h := NewHandler(si, nil, datachan.NewMemory())
	assert.Nil(t, h.Dynamic)
	assert.NotNil(t, h.Static)
	assert.Equal(t, si.Config.Main.ServerName, h.DefaultHeaders["Server"])
}

func TestMetricsMux(t *testing.T) {
	si := testInstance(t)
	srv := httptest.NewServer(MetricsMux(si))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/debug/pprof/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	si.Config.Metrics.Pprof = true
	srv2 := httptest.NewServer(MetricsMux(si))
	defer srv2.Close()
	resp, err = http.Get(srv2.URL + "/debug/pprof/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInProcessDispatcherServesLua(t *testing.T) {
	si := testInstance(t)
	tr, err := NewTransport(si.Config.Dispatcher)
	require.NoError(t, err)
	d, err := StartDispatcher(si, tr)
	require.NoError(t, err)
	defer d.Stop(time.Second)
	require.NoError(t, d.Poll(context.Background(), time.Second))

	l, err := listener.New("test", "127.0.0.1", 0, 0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- frontend.NewServer(NewHandler(si, d, tr)).Serve(ctx, l) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	c, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	c.SetDeadline(time.Now().Add(5 * time.Second))
	fmt.Fprint(c, "GET /hello/world HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n")
	resp, err := http.ReadResponse(bufio.NewReader(c), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello world", string(body))
	assert.Equal(t, si.Config.Main.ServerName, resp.Header.Get("Server"))
}
