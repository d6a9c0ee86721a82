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

package httpmsg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	req, ok := ParseRequest([]byte("GET / HTTP/1.1\r\nHost: example.org\r\n\r\n"))
	require.True(t, ok)
	require.Equal(t, MethodGet, req.Method)
	require.Equal(t, "/", req.Path())
	require.Equal(t, HTTP11, req.Version)
	require.Equal(t, Headers{"Host": "example.org"}, req.Headers)
	require.Empty(t, req.Content)
}

func TestParseRequestFailures(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"unknown method", "FETCH / HTTP/1.1\r\n\r\n"},
		{"unknown version", "GET / HTTP/2.0\r\n\r\n"},
		{"lowercase version", "GET / http/1.1\r\n\r\n"},
		{"missing version", "GET /\r\n\r\n"},
		{"extra token", "GET / x HTTP/1.1\r\n\r\n"},
		{"blank first line", "\r\nHost: x\r\n\r\n"},
		{"invalid utf8 header", "GET / HTTP/1.1\r\nX: \xff\xfe\r\n\r\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, ok := ParseRequest([]byte(test.in))
			require.False(t, ok)
		})
	}
}

func TestParseRequestMethodCase(t *testing.T) {
	req, ok := ParseRequest([]byte("post /x HTTP/1.0\r\n\r\n"))
	require.True(t, ok)
	require.Equal(t, MethodPost, req.Method)
	require.Equal(t, HTTP10, req.Version)
}

func TestParseRequestMalformedHeaders(t *testing.T) {
	in := "GET / HTTP/1.1\r\nGood: yes\r\nNoSeparator\r\nEmpty: \r\nSpaced :  padded  \r\n\r\n"
	req, ok := ParseRequest([]byte(in))
	require.True(t, ok)
	require.Equal(t, Headers{"Good": "yes", "Spaced": "padded"}, req.Headers)
}

func TestParseRequestDuplicateHeaderLastWins(t *testing.T) {
	req, ok := ParseRequest([]byte("GET / HTTP/1.1\r\nX: 1\r\nX: 2\r\n\r\n"))
	require.True(t, ok)
	require.Equal(t, "2", req.Headers["X"])
}

func TestBodyWithoutContentLength(t *testing.T) {
	body := "a body\r\n\r\nwith blank lines and \xff binary"
	req, ok := ParseRequest([]byte("POST /upload HTTP/1.1\r\nHost: x\r\n\r\n" + body))
	require.True(t, ok)
	require.Equal(t, []byte(body), req.Content)
	_, hasLength := req.Headers[HeaderContentLength]
	require.False(t, hasLength)
}

func TestParseRequestWithoutBlankLine(t *testing.T) {
	req, ok := ParseRequest([]byte("GET /a HTTP/1.1\r\nHost: x"))
	require.True(t, ok)
	require.Equal(t, "x", req.Headers["Host"])
	require.Empty(t, req.Content)
}

func TestRequestRoundTrip(t *testing.T) {
	lines := []string{
		"GET / HTTP/1.1",
		"POST /api/users?id=4&name=x HTTP/1.0",
		"DELETE /a/b/c HTTP/1.1",
		"HEAD /index.html HTTP/1.1",
		"OPTIONS /x?flag= HTTP/1.1",
		"PUT /y HTTP/1.0",
		"PATCH /z?b=2&a=1 HTTP/1.1",
	}
	headers := Headers{"Host": "example.org", "X-Custom": "v: with colon"}
	body := []byte("payload\r\nbytes")
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			in := line + "\r\nHost: example.org\r\nX-Custom: v: with colon\r\n\r\n" + string(body)
			m, ok := ParseRequest([]byte(in))
			require.True(t, ok)
			out, ok := ParseRequest(m.Serialize())
			require.True(t, ok)
			require.Equal(t, m.Method, out.Method)
			require.Equal(t, m.Version, out.Version)
			require.Equal(t, m.URL.Path, out.URL.Path)
			require.Equal(t, m.URL.Query, out.URL.Query)
			require.Equal(t, headers, out.Headers)
			require.Equal(t, body, out.Content)
		})
	}
}

func TestSerializeStable(t *testing.T) {
	req, ok := ParseRequest([]byte("GET /p HTTP/1.1\r\nB: 2\r\nA: 1\r\n\r\n"))
	require.True(t, ok)
	require.Equal(t, "GET /p HTTP/1.1\r\nA: 1\r\nB: 2\r\n\r\n", string(req.Serialize()))
}

func TestHeadersGet(t *testing.T) {
	h := Headers{"accept-encoding": "gzip", "Host": "x"}
	v, ok := h.Get(HeaderAcceptEncoding)
	require.True(t, ok)
	require.Equal(t, "gzip", v)
	v, ok = h.Get("Host")
	require.True(t, ok)
	require.Equal(t, "x", v)
	_, ok = h.Get("Missing")
	require.False(t, ok)
	_, ok = Headers(nil).Get("Host")
	require.False(t, ok)
}
