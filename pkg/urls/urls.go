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

// Package urls parses request targets into a path and a query map
package urls

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// URL is a request target: a path and its query parameters. The Path never
// contains the query separator.
type URL struct {
	Path  string
	Query map[string]string
}

// Parse splits s on the first '?' into a path and a query. Query pairs are
// separated by '&' and split on their first '='. A pair without '=' binds its
// key to an empty value, and empty pairs are skipped. Keys and values are
// trimmed but are not percent-decoded. Duplicate keys keep the last value.
func Parse(s string) *URL {
	s = strings.TrimSpace(s)
	u := &URL{Query: make(map[string]string)}
	path, query, found := strings.Cut(s, "?")
	u.Path = path
	if !found || query == "" {
		return u
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		u.Query[k] = strings.TrimSpace(v)
	}
	return u
}

// Segments returns the non-empty '/'-separated segments of the path. The
// root path yields no segments.
func (u *URL) Segments() []string {
	return Segments(u.Path)
}

// Segments returns the non-empty '/'-separated segments of path
func Segments(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// String renders the URL with its query keys in sorted order
func (u *URL) String() string {
	if len(u.Query) == 0 {
		return u.Path
	}
	keys := maps.Keys(u.Query)
	slices.Sort(keys)
	var sb strings.Builder
	sb.WriteString(u.Path)
	sb.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(u.Query[k])
	}
	return sb.String()
}

// Clone returns a deep copy of the URL
func (u *URL) Clone() *URL {
	return &URL{Path: u.Path, Query: maps.Clone(u.Query)}
}
