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

import "strings"

// Method is an HTTP request method
type Method int

const (
	MethodGet Method = iota
	MethodPost
	MethodHead
	MethodOptions
	MethodPut
	MethodPatch
	MethodDelete
)

var methodNames = map[Method]string{
	MethodGet:     "GET",
	MethodPost:    "POST",
	MethodHead:    "HEAD",
	MethodOptions: "OPTIONS",
	MethodPut:     "PUT",
	MethodPatch:   "PATCH",
	MethodDelete:  "DELETE",
}

var methodValues = func() map[string]Method {
	m := make(map[string]Method, len(methodNames))
	for k, v := range methodNames {
		m[v] = k
	}
	return m
}()

// ParseMethod returns the Method for s, matched case-insensitively
func ParseMethod(s string) (Method, bool) {
	m, ok := methodValues[strings.ToUpper(s)]
	return m, ok
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return "UNKNOWN"
}

// Version is an HTTP protocol version
type Version int

const (
	HTTP10 Version = iota
	HTTP11
)

// ParseVersion returns the Version for s, matched case-sensitively
func ParseVersion(s string) (Version, bool) {
	switch s {
	case "HTTP/1.0":
		return HTTP10, true
	case "HTTP/1.1":
		return HTTP11, true
	}
	return 0, false
}

func (v Version) String() string {
	if v == HTTP10 {
		return "HTTP/1.0"
	}
	return "HTTP/1.1"
}
