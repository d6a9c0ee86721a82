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

package frontend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jwx-server/jwx/pkg/behaviors"
	bo "github.com/jwx-server/jwx/pkg/behaviors/options"
	"github.com/jwx-server/jwx/pkg/dispatcher"
	"github.com/jwx-server/jwx/pkg/dispatcher/isolation"
	"github.com/jwx-server/jwx/pkg/encoding/providers"
	"github.com/jwx-server/jwx/pkg/frontend/dynamic"
	"github.com/jwx-server/jwx/pkg/frontend/listener"
	"github.com/jwx-server/jwx/pkg/frontend/options"
	"github.com/jwx-server/jwx/pkg/frontend/static"
	"github.com/jwx-server/jwx/pkg/httpmsg"
	"github.com/jwx-server/jwx/pkg/ipc/control"
	"github.com/jwx-server/jwx/pkg/ipc/datachan"
	"github.com/jwx-server/jwx/pkg/ipc/ids"
	"github.com/jwx-server/jwx/pkg/observability/metrics"
	"github.com/jwx-server/jwx/pkg/observability/tracing"
	"github.com/jwx-server/jwx/pkg/router/trie"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexBody = "<html><body>hello</body></html>"

const userScript = `
function run_request(req)
  jwx.response.headers["Content-Type"] = "application/json"
  jwx.response.content = '{"id":"' .. req.params.id .. '"}'
end
`

var userRoutes = map[string]string{"/api/users/{id}": userScript}

func contentRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, static.IndexFile),
		[]byte(indexBody), 0o644))
	return root
}

const echoScript = `
function run_request(req)
  jwx.response.content = req.content
end
`

// luaClient starts an in-process dispatcher whose units run the given
// scripts, keyed by route
func luaClient(t *testing.T, scripts map[string]string) *dynamic.Client {
	t.Helper()
	dir := t.TempDir()
	endpoints := make(map[string]*bo.Options, len(scripts))
	i := 0
	for route, src := range scripts {
		script := filepath.Join(dir, fmt.Sprintf("handler%d.lua", i))
		require.NoError(t, os.WriteFile(script, []byte(src), 0o644))
		endpoints[route] = bo.New(script)
		i++
	}
	table, err := behaviors.BuildTable(endpoints, nil)
	require.NoError(t, err)

	tr := datachan.NewMemory()
	u := &dispatcher.Unit{
		Transport:        tr,
		Router:           trie.New(table),
		HandshakeTimeout: 5 * time.Second,
		Timeout:          5 * time.Second,
		Server:           "jwx",
	}
	ctx, cancel := context.WithCancel(context.Background())
	a, b := net.Pipe()
	iso := isolation.NewGoroutine(ctx, u.Serve)
	d := dispatcher.New(control.NewChannel(a), iso)
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		iso.Wait()
		b.Close()
	})
	return &dynamic.Client{
		Control:          control.NewChannel(b),
		Transport:        tr,
		IDs:              ids.NewWithPrefix("fe"),
		ExchangeTimeout:  5 * time.Second,
		HandshakeTimeout: 5 * time.Second,
		ResponseTimeout:  5 * time.Second,
		MaxPayload:       1 << 20,
	}
}

// startServer serves h on a loopback port and returns its address
func startServer(t *testing.T, h *Handler) string {
	t.Helper()
	l, err := listener.New("test", "127.0.0.1", 0, 0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer(h)
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, l) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return l.Addr().String()
}

func testHandler(root string, dyn *dynamic.Client) *Handler {
	o := options.New()
	o.ReadPollMS = 5
	o.IdleTimeoutMS = 2000
	return &Handler{
		Options: o,
		Static:  static.New(root, providers.All),
		Dynamic: dyn,
		DefaultHeaders: httpmsg.Headers{
			httpmsg.HeaderServer:     "jwx",
			httpmsg.HeaderConnection: "Keep-Alive",
		},
		Tracer: tracing.Noop(),
	}
}

func roundTrip(t *testing.T, c net.Conn, br *bufio.Reader, raw string) (*http.Response, string) {
	t.Helper()
	_, err := c.Write([]byte(raw))
	require.NoError(t, err)
	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	resp, err := http.ReadResponse(br, nil)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(b)
}

func dial(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, bufio.NewReader(c)
}

func TestServeStatic(t *testing.T) {
	addr := startServer(t, testHandler(contentRoot(t), nil))
	c, br := dial(t, addr)

	resp, body := roundTrip(t, c, br, "GET / HTTP/1.1\r\nHost: localhost\r\n\r\n")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, indexBody, body)
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
	assert.Equal(t, "jwx", resp.Header.Get("Server"))
}

func TestServeDynamic(t *testing.T) {
	addr := startServer(t, testHandler(contentRoot(t), luaClient(t, userRoutes)))
	c, br := dial(t, addr)

	resp, body := roundTrip(t, c, br, "GET /api/users/42 HTTP/1.1\r\nHost: localhost\r\n\r\n")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, `{"id":"42"}`, body)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "jwx", resp.Header.Get("Server"))

	resp, _ = roundTrip(t, c, br, "GET /api/nothing HTTP/1.1\r\n\r\n")
	assert.Equal(t, 404, resp.StatusCode)
}

func TestServeConcurrentConnections(t *testing.T) {
	addr := startServer(t, testHandler(contentRoot(t), luaClient(t, userRoutes)))

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := net.Dial("tcp", addr)
			if !assert.NoError(t, err) {
				return
			}
			defer c.Close()
			fmt.Fprintf(c, "GET /api/users/u%d HTTP/1.1\r\n\r\n", i)
			c.SetReadDeadline(time.Now().Add(5 * time.Second))
			resp, err := http.ReadResponse(bufio.NewReader(c), nil)
			if !assert.NoError(t, err) {
				return
			}
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			assert.Equal(t, fmt.Sprintf(`{"id":"u%d"}`, i), string(b))
		}(i)
	}
	wg.Wait()
}

func TestServeFallback(t *testing.T) {
	addr := startServer(t, testHandler("", nil))
	c, br := dial(t, addr)

	resp, body := roundTrip(t, c, br, "GET /anything HTTP/1.1\r\n\r\n")
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, ErrorBody, body)
	assert.Equal(t, "jwx", resp.Header.Get("Server"))
}

func TestServeKeepAlive(t *testing.T) {
	addr := startServer(t, testHandler(contentRoot(t), nil))
	c, br := dial(t, addr)

	for i := 0; i < 3; i++ {
		resp, body := roundTrip(t, c, br, "GET /index.html HTTP/1.1\r\n\r\n")
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, indexBody, body)
	}

	resp, _ := roundTrip(t, c, br, "GET / HTTP/1.1\r\nConnection: close\r\n\r\n")
	assert.Equal(t, 200, resp.StatusCode)
	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err := br.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
}

func TestServeDiscardsUnparsable(t *testing.T) {
	addr := startServer(t, testHandler(contentRoot(t), nil))
	c, br := dial(t, addr)
	before := testutil.ToFloat64(metrics.FrontendParseFailures)

	_, err := c.Write([]byte("this is not http\r\n\r\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.FrontendParseFailures) > before
	}, 5*time.Second, 10*time.Millisecond)

	resp, body := roundTrip(t, c, br, "GET / HTTP/1.1\r\n\r\n")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, indexBody, body)
}

func TestServeAwaitsBody(t *testing.T) {
	addr := startServer(t, testHandler("", luaClient(t, map[string]string{"/echo": echoScript})))
	c, br := dial(t, addr)

	_, err := c.Write([]byte("POST /echo HTTP/1.1\r\nContent-Length: 10\r\n\r\nhello"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	resp, body := roundTrip(t, c, br, "world")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "helloworld", body)
}

func TestNextBackoff(t *testing.T) {
	d := nextBackoff(0)
	assert.Equal(t, 5*time.Millisecond, d)
	assert.Equal(t, 10*time.Millisecond, nextBackoff(d))
	assert.Equal(t, time.Second, nextBackoff(800*time.Millisecond))
}

func TestAwaitingBody(t *testing.T) {
	req, ok := httpmsg.ParseRequest([]byte("POST / HTTP/1.1\r\nContent-Length: 4\r\n\r\nab"))
	require.True(t, ok)
	assert.True(t, awaitingBody(req))
	req, ok = httpmsg.ParseRequest([]byte("POST / HTTP/1.1\r\ncontent-length: 2\r\n\r\nab"))
	require.True(t, ok)
	assert.False(t, awaitingBody(req))
	assert.True(t, wantsClose(&httpmsg.Request{Headers: httpmsg.Headers{"connection": " Close"}}))
}
