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
	"strconv"
	"strings"
)

// Response is an HTTP response
type Response struct {
	StatusCode int
	Headers    Headers
	Content    []byte
	Version    Version
}

// NewResponse returns a Response whose Content-Length header is set to the
// true length of content, overwriting any provided value
func NewResponse(code int, headers Headers, content []byte, v Version) *Response {
	h := headers.Clone()
	h[HeaderContentLength] = strconv.Itoa(len(content))
	return &Response{
		StatusCode: code,
		Headers:    h,
		Content:    content,
		Version:    v,
	}
}

// NewTextResponse returns a text/plain Response with body as its content
func NewTextResponse(code int, body string, v Version) *Response {
	return NewResponse(code, Headers{HeaderContentType: "text/plain"}, []byte(body), v)
}

// ParseResponse parses data into a Response. The reason phrase is read but
// discarded. Content-Length is kept as received.
func ParseResponse(data []byte) (*Response, bool) {
	first, headers, content, ok := load(data)
	if !ok {
		return nil, false
	}
	vs, rest, found := strings.Cut(first, " ")
	if !found {
		return nil, false
	}
	v, ok := ParseVersion(vs)
	if !ok {
		return nil, false
	}
	cs, _, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
	code, err := strconv.ParseUint(cs, 10, 16)
	if err != nil {
		return nil, false
	}
	return &Response{
		StatusCode: int(code),
		Headers:    headers,
		Content:    content,
		Version:    v,
	}, true
}

// Serialize returns the wire form of the Response
func (r *Response) Serialize() []byte {
	return serialize(r.Version.String()+" "+strconv.Itoa(r.StatusCode)+" "+
		StatusText(r.StatusCode), r.Headers, r.Content)
}

// SetContent replaces the content and updates Content-Length
func (r *Response) SetContent(content []byte) {
	r.Content = content
	if r.Headers == nil {
		r.Headers = Headers{}
	}
	r.Headers[HeaderContentLength] = strconv.Itoa(len(content))
}
