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

// Package tracing provides distributed tracing services to jwx
package tracing

import (
	"context"
	"net/http"

	"github.com/jwx-server/jwx/pkg/observability/tracing/options"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ShutdownFunc defines a function used to Flush a Tracer
type ShutdownFunc func(context.Context) error

// Tracer is a Tracer object used by jwx
type Tracer struct {
	trace.Tracer
	Name         string
	ShutdownFunc ShutdownFunc
	Options      *options.Options
}

// Tags represents a collection of Tags
type Tags map[string]string

// Noop returns a Tracer whose spans are never recorded
func Noop() *Tracer {
	o := options.New()
	o.Name = options.ProviderNone
	return &Tracer{
		Name:    o.Name,
		Tracer:  trace.NewNoopTracerProvider().Tracer(o.Name),
		Options: o,
	}
}

// Shutdown flushes and stops the Tracer's exporter, if it has one
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.ShutdownFunc == nil {
		return nil
	}
	return t.ShutdownFunc(ctx)
}

// HTTPToCode translates an HTTP status code into a span status code
func HTTPToCode(status int) codes.Code {
	switch {
	case status < http.StatusBadRequest:
		return codes.Ok
	default:
		return codes.Error
	}
}

// Sampler returns the sampler for a 0 to 1 sample rate
func Sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		return sdktrace.NeverSample()
	case rate >= 1:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Resource returns the process resource for the Options: the service name
// plus the static tags, unless those are attached to each span instead
func Resource(o *options.Options) *resource.Resource {
	attrs := []attribute.KeyValue{attribute.String("service.name", o.ServiceName)}
	if !o.AttachTagsToSpan() {
		attrs = append(attrs, Tags(o.Tags).ToAttr()...)
	}
	return resource.NewWithAttributes("", attrs...)
}

// NewTracer wraps a TracerProvider built for the Options into a *Tracer
func NewTracer(o *options.Options, tp *sdktrace.TracerProvider) *Tracer {
	return &Tracer{
		Name:         o.Name,
		Tracer:       tp.Tracer(o.Name),
		Options:      o,
		ShutdownFunc: tp.Shutdown,
	}
}

// Merge merges t2, when not nil, into t
func (t Tags) Merge(t2 Tags) {
	for k, v := range t2 {
		t[k] = v
	}
}

// MergeAttr merges the provided attributes into the Tags map
func (t Tags) MergeAttr(attr []attribute.KeyValue) {
	for _, v := range attr {
		t[string(v.Key)] = v.Value.Emit()
	}
}

// ToAttr returns the Tags map as an Attributes List
func (t Tags) ToAttr() []attribute.KeyValue {
	attr := make([]attribute.KeyValue, 0, len(t))
	for k, v := range t {
		attr = append(attr, attribute.String(k, v))
	}
	return attr
}
