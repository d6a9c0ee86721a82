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

package listener

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jwx-server/jwx/pkg/observability/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewListenerErr(t *testing.T) {
	l, err := New("test", "-", 0, 0)
	if err == nil {
		l.Close()
		t.Errorf("expected error: %s", `listen tcp: lookup -: no such host`)
	}
	_, err = New("test", "", -31, 0)
	require.Error(t, err)
}

func TestListenerAccept(t *testing.T) {
	l, err := New("test", "127.0.0.1", 0, 20)
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, float64(20), testutil.ToFloat64(metrics.FrontendMaxConnections))

	accepted := testutil.ToFloat64(metrics.FrontendConnectionAccepted)
	closed := testutil.ToFloat64(metrics.FrontendConnectionClosed)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c, err := l.Accept()
		if !assert.NoError(t, err) {
			return
		}
		c.Close()
		c.Close()
	}()
	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	<-done
	conn.Close()

	assert.Equal(t, accepted+1, testutil.ToFloat64(metrics.FrontendConnectionAccepted))
	// a second Close is not counted
	assert.Equal(t, closed+1, testutil.ToFloat64(metrics.FrontendConnectionClosed))
}

func TestServeHTTP(t *testing.T) {
	l, err := New("metrics", "127.0.0.1", 0, 0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serveHTTP(ctx, l, "/metrics", metrics.Handler())
	}()

	resp, err := http.Get("http://" + l.Addr().String() + "/metrics")
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(b), "jwx_frontend_active_connections")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second * 10):
		t.Fatal("listener did not stop")
	}
}
