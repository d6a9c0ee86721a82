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

// Package registration builds the configured tracer
package registration

import (
	"fmt"

	"github.com/jwx-server/jwx/pkg/errors"
	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
	"github.com/jwx-server/jwx/pkg/observability/tracing"
	"github.com/jwx-server/jwx/pkg/observability/tracing/exporters/jaeger"
	"github.com/jwx-server/jwx/pkg/observability/tracing/exporters/stdout"
	"github.com/jwx-server/jwx/pkg/observability/tracing/exporters/zipkin"
	"github.com/jwx-server/jwx/pkg/observability/tracing/options"
)

// GetTracer returns a *Tracer based on the provided options. A nil or
// "none" configuration yields the noop tracer.
func GetTracer(opts *options.Options, isDryRun bool) (*tracing.Tracer, error) {
	if opts == nil || opts.Provider == "" || opts.Provider == options.ProviderNone {
		return tracing.Noop(), nil
	}
	if opts.Name == "" {
		opts.Name = opts.Provider
	}

	var tr *tracing.Tracer
	var err error
	switch opts.Provider {
	case options.ProviderStdout:
		tr, err = stdout.New(opts)
	case options.ProviderJaeger:
		tr, err = jaeger.New(opts)
	case options.ProviderZipkin:
		tr, err = zipkin.New(opts)
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrInvalidTracerProvider, opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	if !isDryRun {
		logger.Info("tracer registration",
			logging.Pairs{
				"name":        opts.Name,
				"provider":    opts.Provider,
				"serviceName": opts.ServiceName,
				"collector":   opts.CollectorURL,
				"sampleRate":  opts.SampleRate,
				"tags":        len(opts.Tags),
			},
		)
	}
	return tr, nil
}
