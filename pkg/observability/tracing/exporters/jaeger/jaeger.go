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

// Package jaeger provides a Jaeger Tracer
package jaeger

import (
	"net"

	"github.com/jwx-server/jwx/pkg/errors"
	"github.com/jwx-server/jwx/pkg/observability/tracing"
	"github.com/jwx-server/jwx/pkg/observability/tracing/options"

	"go.opentelemetry.io/otel/exporters/jaeger"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// New returns a new Jaeger Tracer based on the provided options
func New(opts *options.Options) (*tracing.Tracer, error) {
	if opts == nil {
		return nil, errors.ErrNoTracerOptions
	}

	eo, err := endpoint(opts)
	if err != nil {
		return nil, err
	}

	exporter, err := jaeger.New(eo)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(tracing.Sampler(opts.SampleRate)),
		sdktrace.WithResource(tracing.Resource(opts)),
	)
	return tracing.NewTracer(opts, tp), nil
}

func endpoint(opts *options.Options) (jaeger.EndpointOption, error) {
	if opts.JaegerEndpoint == options.JaegerEndpointAgent {
		host, port, err := net.SplitHostPort(opts.CollectorURL)
		if err != nil || host == "" || port == "" {
			return nil, errors.ErrInvalidEndpointURL
		}
		return jaeger.WithAgentEndpoint(jaeger.WithAgentHost(host),
			jaeger.WithAgentPort(port)), nil
	}
	ceo := make([]jaeger.CollectorEndpointOption, 1, 3)
	ceo[0] = jaeger.WithEndpoint(opts.CollectorURL)
	if opts.CollectorUser != "" {
		ceo = append(ceo, jaeger.WithUsername(opts.CollectorUser))
	}
	if opts.CollectorPass != "" {
		ceo = append(ceo, jaeger.WithPassword(opts.CollectorPass))
	}
	return jaeger.WithCollectorEndpoint(ceo...), nil
}
