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

// Package route parses endpoint patterns into segments
package route

import "strings"

// Kind is the kind of a route Segment
type Kind int

const (
	// Plain segments must equal the path segment literally
	Plain Kind = iota
	// Parameter segments match any path segment and bind it to Name
	Parameter
	// Ignore segments match any path segment without binding it
	Ignore
)

func (k Kind) String() string {
	switch k {
	case Parameter:
		return "parameter"
	case Ignore:
		return "ignore"
	}
	return "plain"
}

// Segment is one '/'-delimited component of a Route
type Segment struct {
	Kind Kind
	Name string
}

// Wild returns true if the segment matches any path segment
func (s Segment) Wild() bool {
	return s.Kind != Plain
}

// Route is a parsed endpoint pattern
type Route struct {
	Pattern  string
	Segments []Segment
}

// Parse parses a route string. The leading slash is stripped and the rest is
// split on '/'; a trailing empty segment is dropped, inner ones are kept as
// empty Plain segments. "{}" is an Ignore segment, "{name}" is a Parameter
// segment and anything else is Plain.
func Parse(pattern string) *Route {
	r := &Route{Pattern: pattern}
	parts := strings.Split(strings.TrimPrefix(pattern, "/"), "/")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for _, s := range parts {
		seg := Segment{Kind: Plain, Name: s}
		if len(s) >= 2 && s[0] == '{' && s[len(s)-1] == '}' {
			seg.Name = s[1 : len(s)-1]
			if seg.Name == "" {
				seg.Kind = Ignore
			} else {
				seg.Kind = Parameter
			}
		}
		r.Segments = append(r.Segments, seg)
	}
	return r
}

// Unreachable returns true if the route has an empty Plain segment. Request
// paths never carry empty segments, so such a route can never match.
func (r *Route) Unreachable() bool {
	for _, seg := range r.Segments {
		if seg.Kind == Plain && seg.Name == "" {
			return true
		}
	}
	return false
}

// Len returns the number of segments, which is the route's specificity
func (r *Route) Len() int {
	return len(r.Segments)
}

// Bind zips the route's segments against path segments and returns the values
// of the Parameter segments. Extra path segments are ignored, and binding stops
// when the path runs out.
func (r *Route) Bind(path []string) map[string]string {
	params := make(map[string]string)
	for i, seg := range r.Segments {
		if i >= len(path) {
			break
		}
		if seg.Kind == Parameter {
			params[seg.Name] = path[i]
		}
	}
	return params
}

// String renders the route in its canonical form
func (r *Route) String() string {
	if len(r.Segments) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, seg := range r.Segments {
		sb.WriteByte('/')
		switch seg.Kind {
		case Parameter:
			sb.WriteString("{" + seg.Name + "}")
		case Ignore:
			sb.WriteString("{}")
		default:
			sb.WriteString(seg.Name)
		}
	}
	return sb.String()
}
