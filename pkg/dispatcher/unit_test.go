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

package dispatcher

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	jerrors "github.com/jwx-server/jwx/pkg/errors"
	"github.com/jwx-server/jwx/pkg/httpmsg"
	"github.com/jwx-server/jwx/pkg/ipc/datachan"
	"github.com/jwx-server/jwx/pkg/ipc/frame"
	"github.com/jwx-server/jwx/pkg/observability/tracing"
	"github.com/jwx-server/jwx/pkg/router"
	"github.com/jwx-server/jwx/pkg/router/trie"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUnit(tr datachan.Transport) *Unit {
	table := router.Table{
		"/api/users/{id}": router.HandlerFunc(func(ctx context.Context,
			req *httpmsg.Request, params router.Params) (*httpmsg.Response, error) {
			return httpmsg.NewTextResponse(200, `{"id":"`+params["id"]+`"}`, req.Version), nil
		}),
		"/slow": router.HandlerFunc(func(ctx context.Context,
			req *httpmsg.Request, params router.Params) (*httpmsg.Response, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
		"/named": router.HandlerFunc(func(ctx context.Context,
			req *httpmsg.Request, params router.Params) (*httpmsg.Response, error) {
			return httpmsg.NewResponse(204, httpmsg.Headers{httpmsg.HeaderServer: "custom"},
				nil, req.Version), nil
		}),
	}
	return &Unit{
		Transport:        tr,
		Router:           trie.New(table),
		MaxPayload:       1 << 16,
		HandshakeTimeout: time.Second * 2,
		Timeout:          time.Millisecond * 200,
		Server:           "jwx-test",
		Tracer:           tracing.Noop(),
	}
}

// roundTrip plays the frontend side of a dynamic request
func roundTrip(t *testing.T, tr datachan.Transport, u *Unit, id string,
	payload []byte) ([]byte, error) {
	t.Helper()
	require.NoError(t, tr.Create(id))
	defer tr.Remove(id)

	errCh := make(chan error, 1)
	go func() { errCh <- u.Serve(context.Background(), id) }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	w, err := tr.OpenWriter(ctx, id, datachan.Out)
	require.NoError(t, err)
	frame.Write(w, payload)
	w.Close()

	r, err := tr.OpenReader(ctx, id, datachan.In)
	require.NoError(t, err)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	r.Close()
	return b, <-errCh
}

func TestUnitServe(t *testing.T) {
	tr := datachan.NewMemory()
	u := testUnit(tr)

	b, err := roundTrip(t, tr, u, "t_0", []byte("GET /api/users/42 HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)
	resp, ok := httpmsg.ParseResponse(b)
	require.True(t, ok)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, `{"id":"42"}`, string(resp.Content))
	assert.Equal(t, "jwx-test", resp.Headers[httpmsg.HeaderServer])
	assert.Equal(t, httpmsg.HTTP11, resp.Version)
}

func TestUnitServeKeepsHandlerServer(t *testing.T) {
	tr := datachan.NewMemory()
	b, err := roundTrip(t, tr, testUnit(tr), "t_1", []byte("GET /named HTTP/1.0\r\n\r\n"))
	require.NoError(t, err)
	resp, ok := httpmsg.ParseResponse(b)
	require.True(t, ok)
	assert.Equal(t, 204, resp.StatusCode)
	assert.Equal(t, "custom", resp.Headers[httpmsg.HeaderServer])
	assert.Equal(t, httpmsg.HTTP10, resp.Version)
}

func TestUnitServeNotFound(t *testing.T) {
	tr := datachan.NewMemory()
	b, err := roundTrip(t, tr, testUnit(tr), "t_2", []byte("GET /nope HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	resp, ok := httpmsg.ParseResponse(b)
	require.True(t, ok)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, router.NotFoundBody, string(resp.Content))
}

func TestUnitServeTimeout(t *testing.T) {
	tr := datachan.NewMemory()
	b, err := roundTrip(t, tr, testUnit(tr), "t_3", []byte("GET /slow HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	resp, ok := httpmsg.ParseResponse(b)
	require.True(t, ok)
	assert.Equal(t, 500, resp.StatusCode)
}

func TestUnitServeUnparsable(t *testing.T) {
	tr := datachan.NewMemory()
	b, err := roundTrip(t, tr, testUnit(tr), "t_4", []byte("BREW /pot HTCPCP/1.0\r\n\r\n"))
	require.True(t, errors.Is(err, jerrors.ErrUnparsableRequest))
	assert.Empty(t, b)
}

func TestUnitServeTooLarge(t *testing.T) {
	tr := datachan.NewMemory()
	u := testUnit(tr)
	u.MaxPayload = 8
	b, err := roundTrip(t, tr, u, "t_5", []byte("GET /api/users/42 HTTP/1.1\r\n\r\n"))
	require.True(t, errors.Is(err, jerrors.ErrPayloadTooLarge))
	assert.Empty(t, b)
}

func TestUnitServeMissingChannels(t *testing.T) {
	tr := datachan.NewMemory()
	err := testUnit(tr).Serve(context.Background(), "missing")
	require.True(t, errors.Is(err, jerrors.ErrNoSuchChannel))
}
