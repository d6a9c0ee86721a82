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

// Package options holds the tracing configuration
package options

import (
	"fmt"

	"github.com/jwx-server/jwx/pkg/errors"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	// ProviderNone disables tracing
	ProviderNone = "none"
	// ProviderStdout writes spans to stdout
	ProviderStdout = "stdout"
	// ProviderJaeger exports spans to a Jaeger collector or agent
	ProviderJaeger = "jaeger"
	// ProviderZipkin exports spans to a Zipkin collector
	ProviderZipkin = "zipkin"

	// DefaultTracerProvider is the default tracing provider
	DefaultTracerProvider = ProviderNone
	// DefaultTracerServiceName is the default service name reported on spans
	DefaultTracerServiceName = "jwx"
	// DefaultSampleRate is the default sampling ratio
	DefaultSampleRate = 1.0

	// JaegerEndpointCollector posts spans to a collector URL
	JaegerEndpointCollector = "collector"
	// JaegerEndpointAgent sends spans to a host:port agent over UDP
	JaegerEndpointAgent = "agent"
)

// Providers lists the supported tracing provider names
var Providers = []string{ProviderNone, ProviderStdout, ProviderJaeger, ProviderZipkin}

// Options is a Tracing Options collection
type Options struct {
	Name           string            `yaml:"-"`
	Provider       string            `yaml:"provider,omitempty"`
	ServiceName    string            `yaml:"service_name,omitempty"`
	CollectorURL   string            `yaml:"collector_url,omitempty"`
	CollectorUser  string            `yaml:"collector_user,omitempty"`
	CollectorPass  string            `yaml:"collector_pass,omitempty"`
	SampleRate     float64           `yaml:"sample_rate,omitempty"`
	Tags           map[string]string `yaml:"tags,omitempty"`
	OmitTagsList   []string          `yaml:"omit_tags,omitempty"`
	PrettyPrint    bool              `yaml:"pretty_print,omitempty"`
	JaegerEndpoint string            `yaml:"jaeger_endpoint_type,omitempty"`

	OmitTags map[string]struct{} `yaml:"-"`
}

// New returns a new *Options with the default values
func New() *Options {
	return &Options{
		Provider:       DefaultTracerProvider,
		ServiceName:    DefaultTracerServiceName,
		SampleRate:     DefaultSampleRate,
		JaegerEndpoint: JaegerEndpointCollector,
	}
}

// Clone returns an exact copy of a tracing config
func (o *Options) Clone() *Options {
	co := *o
	if o.Tags != nil {
		co.Tags = maps.Clone(o.Tags)
	}
	if o.OmitTagsList != nil {
		co.OmitTagsList = slices.Clone(o.OmitTagsList)
	}
	if o.OmitTags != nil {
		co.OmitTags = maps.Clone(o.OmitTags)
	}
	return &co
}

// Validate checks the provider name and sample rate, and builds the omitted
// tags lookup
func (o *Options) Validate() error {
	if !slices.Contains(Providers, o.Provider) {
		return fmt.Errorf("%w: %s", errors.ErrInvalidTracerProvider, o.Provider)
	}
	if o.SampleRate < 0 || o.SampleRate > 1 {
		return fmt.Errorf("%w: tracing sample_rate must be between 0 and 1, got %v",
			errors.ErrInvalidOptions, o.SampleRate)
	}
	if o.Provider == ProviderJaeger && o.JaegerEndpoint != JaegerEndpointCollector &&
		o.JaegerEndpoint != JaegerEndpointAgent {
		return fmt.Errorf("%w: unknown jaeger_endpoint_type %s",
			errors.ErrInvalidOptions, o.JaegerEndpoint)
	}
	o.OmitTags = make(map[string]struct{}, len(o.OmitTagsList))
	for _, k := range o.OmitTagsList {
		o.OmitTags[k] = struct{}{}
	}
	return nil
}

// AttachTagsToSpan indicates that Tags should be attached to each span
// rather than to the process resource, which Zipkin does not report
func (o *Options) AttachTagsToSpan() bool {
	return o.Provider == ProviderZipkin && len(o.Tags) > 0
}
