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

// Package options holds the configuration of one endpoint behavior
package options

import (
	"strings"

	"github.com/jwx-server/jwx/pkg/errors"

	"gopkg.in/yaml.v3"
)

// Options describes the handler bound to an endpoint route
type Options struct {
	// Kind selects the behavior implementation. When empty it is inferred
	// from the Script file extension.
	Kind string `yaml:"kind,omitempty"`
	// Script is the path of the handler script
	Script string `yaml:"script,omitempty"`
}

// New returns Options for script with an inferred Kind
func New(script string) *Options {
	return &Options{Script: script}
}

// Clone returns a copy of the Options
func (o *Options) Clone() *Options {
	return &Options{Kind: o.Kind, Script: o.Script}
}

// ResolvedKind returns the explicit Kind, or the Script's extension
func (o *Options) ResolvedKind() string {
	if o.Kind != "" {
		return strings.ToLower(o.Kind)
	}
	i := strings.LastIndex(o.Script, ".")
	if i < 0 || i == len(o.Script)-1 {
		return ""
	}
	return strings.ToLower(o.Script[i+1:])
}

// UnmarshalYAML accepts either a bare script path or a mapping
func (o *Options) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		o.Script = value.Value
		return nil
	case yaml.MappingNode:
		type plain Options
		p := (*plain)(o)
		return value.Decode(p)
	}
	return errors.ErrInvalidOptions
}

// MarshalYAML writes the bare script path when Kind is empty
func (o *Options) MarshalYAML() (interface{}, error) {
	if o.Kind == "" {
		return o.Script, nil
	}
	type plain Options
	return (*plain)(o), nil
}
