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

package control

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	jwxerrors "github.com/jwx-server/jwx/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	msgs := []Message{Poll, Ok, Close, Request("abc"), Request(""),
		Request(strings.Repeat("z", 70*1024))}
	for _, m := range msgs {
		t.Run(m.Type.String()+"/"+strconv.Itoa(len(m.ID)), func(t *testing.T) {
			buf := &bytes.Buffer{}
			require.NoError(t, Encode(buf, m))
			out, err := Decode(buf, DefaultMaxIDLength)
			require.NoError(t, err)
			require.Equal(t, m, out)
			require.Zero(t, buf.Len())
		})
	}
}

func TestWireFormat(t *testing.T) {
	require.Equal(t, []byte{'p'}, Append(nil, Poll))
	require.Equal(t, []byte{'o'}, Append(nil, Ok))
	require.Equal(t, []byte{'c'}, Append(nil, Close))
	require.Equal(t, []byte{'r', 2, 0, 0, 0, 0, 0, 0, 0, 'i', 'd'}, Append(nil, Request("id")))
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(bytes.NewReader(nil), DefaultMaxIDLength)
	require.ErrorIs(t, err, io.EOF)

	tests := []struct {
		name string
		in   []byte
		err  error
	}{
		{"unknown tag", []byte{'x'}, jwxerrors.ErrUnknownControlTag},
		{"no length", []byte{'r'}, io.ErrUnexpectedEOF},
		{"short length", []byte{'r', 1, 0}, io.ErrUnexpectedEOF},
		{"short id", []byte{'r', 5, 0, 0, 0, 0, 0, 0, 0, 'a'}, io.ErrUnexpectedEOF},
		{"too long", []byte{'r', 0, 0, 0, 0, 0, 0, 0, 1}, jwxerrors.ErrPayloadTooLarge},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(test.in), DefaultMaxIDLength)
			var de *DecodeError
			require.True(t, errors.As(err, &de))
			require.ErrorIs(t, err, test.err)
			require.Contains(t, err.Error(), "decode error")
		})
	}
}

func TestMessageString(t *testing.T) {
	require.Equal(t, "poll", Poll.String())
	require.Equal(t, "request{7_1}", Request("7_1").String())
	require.Contains(t, Type('q').String(), "unknown")
}

// peer answers every Request with Ok and the other messages per reply
func peer(t *testing.T, conn net.Conn, reply map[Type]Message) {
	t.Helper()
	ch := NewChannel(conn)
	go func() {
		for {
			m, err := ch.Receive()
			if err != nil {
				return
			}
			r, ok := reply[m.Type]
			if !ok {
				continue
			}
			if ch.Send(r) != nil {
				return
			}
		}
	}()
}

func TestExchange(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	peer(t, b, map[Type]Message{TypePoll: Ok, TypeRequest: Ok, TypeOk: Ok})
	ch := NewChannel(a)
	for _, m := range []Message{Poll, Ok, Request("1")} {
		r, err := ch.Exchange(context.Background(), m)
		require.NoError(t, err)
		require.Equal(t, Ok, r)
	}
	require.False(t, ch.Broken())
}

func TestExchangeCloseBreaks(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	peer(t, b, map[Type]Message{TypeRequest: Close})
	ch := NewChannel(a)
	r, err := ch.Exchange(context.Background(), Request("1"))
	require.NoError(t, err)
	require.Equal(t, Close, r)
	require.True(t, ch.Broken())
	_, err = ch.Exchange(context.Background(), Request("2"))
	require.ErrorIs(t, err, jwxerrors.ErrDispatcherClosed)
}

func TestExchangeTimeoutBreaks(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	// the peer reads but never answers
	go io.Copy(io.Discard, b)
	ch := NewChannel(a)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := ch.Exchange(ctx, Poll)
	require.Error(t, err)
	require.True(t, ch.Broken())
}

func TestExchangeCancel(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	go io.Copy(io.Discard, b)
	ch := NewChannel(a)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err := ch.Exchange(ctx, Poll)
	require.Error(t, err)
}

func TestExchangeAfterCancelledContext(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	peer(t, b, map[Type]Message{TypePoll: Ok})
	ch := NewChannel(a)
	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		r, err := ch.Exchange(ctx, Poll)
		cancel()
		require.NoError(t, err)
		require.Equal(t, Ok, r)
		// a cancellation after the reply must not leave a deadline behind
		r, err = ch.Exchange(context.Background(), Poll)
		require.NoError(t, err, "exchange %d", i)
		require.Equal(t, Ok, r)
	}
	require.False(t, ch.Broken())
}

func TestExchangeSerialized(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	// echo back a Request with the same id, so interleaving would show up as
	// a mismatched reply
	srv := NewChannel(b)
	go func() {
		for {
			m, err := srv.Receive()
			if err != nil {
				return
			}
			if srv.Send(m) != nil {
				return
			}
		}
	}()
	ch := NewChannel(a)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := strconv.Itoa(i)
			r, err := ch.Exchange(context.Background(), Request(id))
			assert.NoError(t, err)
			assert.Equal(t, id, r.ID)
		}(i)
	}
	wg.Wait()
}

func TestPeerGone(t *testing.T) {
	a, b := net.Pipe()
	b.Close()
	ch := NewChannel(a)
	_, err := ch.Exchange(context.Background(), Poll)
	require.Error(t, err)
	require.True(t, ch.Broken())
	require.NoError(t, ch.Close())
}

func TestNotify(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	ch := NewChannel(a)
	got := make(chan Message, 1)
	go func() {
		m, err := NewChannel(b).Receive()
		if err == nil {
			got <- m
		}
	}()
	require.NoError(t, ch.Notify(Close))
	require.Equal(t, Close, <-got)

	require.NoError(t, ch.Close())
	require.ErrorIs(t, ch.Notify(Poll), jwxerrors.ErrDispatcherClosed)
}
