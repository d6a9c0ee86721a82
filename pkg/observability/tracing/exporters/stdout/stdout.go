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

// Package stdout provides a Stdout Tracer
package stdout

import (
	"io"

	"github.com/jwx-server/jwx/pkg/observability/tracing"
	"github.com/jwx-server/jwx/pkg/observability/tracing/options"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// New returns a new Stdout Tracer
func New(opts *options.Options) (*tracing.Tracer, error) {
	return NewWithWriter(opts, nil)
}

// NewWithWriter returns a new Tracer that writes spans to w, or to stdout
// when w is nil
func NewWithWriter(opts *options.Options, w io.Writer) (*tracing.Tracer, error) {
	if opts == nil {
		opts = options.New()
		opts.Provider = options.ProviderStdout
		opts.Name = options.ProviderStdout
	}

	o := []stdouttrace.Option{}
	if opts.PrettyPrint {
		o = append(o, stdouttrace.WithPrettyPrint())
	}
	if w != nil {
		o = append(o, stdouttrace.WithWriter(w))
	}

	exp, err := stdouttrace.New(o...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp),
		sdktrace.WithSampler(tracing.Sampler(opts.SampleRate)),
		sdktrace.WithResource(tracing.Resource(opts)),
	)
	return tracing.NewTracer(opts, tp), nil
}
