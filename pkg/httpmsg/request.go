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
	"strings"

	"github.com/jwx-server/jwx/pkg/urls"
)

// Request is a parsed HTTP request. It is not modified after parsing.
type Request struct {
	Method  Method
	URL     *urls.URL
	Version Version
	Headers Headers
	Content []byte
}

// ParseRequest parses data into a Request. The first line must hold exactly
// a known method, a request target and a known version.
func ParseRequest(data []byte) (*Request, bool) {
	first, headers, content, ok := load(data)
	if !ok {
		return nil, false
	}
	parts := strings.Fields(first)
	if len(parts) != 3 {
		return nil, false
	}
	m, ok := ParseMethod(parts[0])
	if !ok {
		return nil, false
	}
	v, ok := ParseVersion(parts[2])
	if !ok {
		return nil, false
	}
	return &Request{
		Method:  m,
		URL:     urls.Parse(parts[1]),
		Version: v,
		Headers: headers,
		Content: content,
	}, true
}

// Serialize returns the wire form of the Request
func (r *Request) Serialize() []byte {
	return serialize(r.Method.String()+" "+r.URL.String()+" "+r.Version.String(),
		r.Headers, r.Content)
}

// Path returns the request path without its query
func (r *Request) Path() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Path
}
