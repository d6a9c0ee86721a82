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

// Package httpmsg models the HTTP/1.x request and response messages exchanged
// by the frontend and the dispatcher, and their shared wire grammar.
package httpmsg

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	// HeaderContentLength is the Content-Length header name
	HeaderContentLength = "Content-Length"
	// HeaderContentType is the Content-Type header name
	HeaderContentType = "Content-Type"
	// HeaderContentEncoding is the Content-Encoding header name
	HeaderContentEncoding = "Content-Encoding"
	// HeaderAcceptEncoding is the Accept-Encoding header name
	HeaderAcceptEncoding = "Accept-Encoding"
	// HeaderLocation is the Location header name
	HeaderLocation = "Location"
	// HeaderServer is the Server header name
	HeaderServer = "Server"
	// HeaderConnection is the Connection header name
	HeaderConnection = "Connection"

	headerSeparator = ": "
)

var crlf = []byte("\r\n")

// Headers maps header names, as received, to their values. The last value
// wins on duplicate names.
type Headers map[string]string

// Clone returns a copy of the Headers
func (h Headers) Clone() Headers {
	if h == nil {
		return Headers{}
	}
	return maps.Clone(h)
}

// Get returns the value of the named header, matching the name exactly
// first and then case-insensitively
func (h Headers) Get(name string) (string, bool) {
	if v, ok := h[name]; ok {
		return v, true
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Merge copies every header in src into h, overwriting existing values
func (h Headers) Merge(src Headers) {
	for k, v := range src {
		h[k] = v
	}
}

// load splits data into a first line, a headers block terminated by an empty
// line (or the end of input), and the raw content tail. Header lines are split
// on their first ": " and lines without a value are dropped. The first line and
// header lines must be valid UTF-8; the content tail is taken verbatim.
func load(data []byte) (first string, headers Headers, content []byte, ok bool) {
	if len(data) == 0 {
		return "", nil, nil, false
	}
	headers = Headers{}
	rest := data
	for n := 0; ; n++ {
		var line []byte
		i := bytes.Index(rest, crlf)
		last := i < 0
		if last {
			line, rest = rest, nil
		} else {
			line, rest = rest[:i], rest[i+2:]
		}
		if !utf8.Valid(line) {
			return "", nil, nil, false
		}
		if n == 0 {
			first = string(line)
		} else if len(line) == 0 {
			if len(rest) > 0 {
				content = append([]byte(nil), rest...)
			}
			break
		} else {
			parseHeader(headers, string(line))
		}
		if last {
			break
		}
	}
	if strings.TrimSpace(first) == "" {
		return "", nil, nil, false
	}
	return first, headers, content, true
}

func parseHeader(h Headers, line string) {
	i := strings.Index(line, headerSeparator)
	if i < 0 || i+len(headerSeparator) >= len(line) {
		return
	}
	name := strings.TrimSpace(line[:i])
	if name == "" {
		return
	}
	h[name] = strings.TrimSpace(line[i+len(headerSeparator):])
}

// serialize writes the first line, the headers in sorted order, the blank
// line and the raw content
func serialize(first string, h Headers, content []byte) []byte {
	size := len(first) + 4 + len(content)
	for k, v := range h {
		size += len(k) + len(v) + 4
	}
	b := bytes.NewBuffer(make([]byte, 0, size))
	b.WriteString(first)
	b.Write(crlf)
	keys := maps.Keys(h)
	slices.Sort(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(headerSeparator)
		b.WriteString(h[k])
		b.Write(crlf)
	}
	b.Write(crlf)
	b.Write(content)
	return b.Bytes()
}
