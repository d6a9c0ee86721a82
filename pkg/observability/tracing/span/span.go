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

// Package span starts and annotates spans for jwx requests, and carries
// their trace context across the dispatcher boundary in message headers
package span

import (
	"context"
	"strings"

	"github.com/jwx-server/jwx/pkg/httpmsg"
	"github.com/jwx-server/jwx/pkg/observability/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var propagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{}, propagation.Baggage{})

// headerCarrier adapts httpmsg.Headers, whose names keep their received
// case, to a propagation.TextMapCarrier
type headerCarrier httpmsg.Headers

func (c headerCarrier) Get(key string) string {
	if v, ok := c[key]; ok {
		return v
	}
	for k, v := range c {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	c[key] = value
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// PrepareRequest extracts any trace context present in the request headers
// and starts a span named spanName as its child. The span is nil when tr is nil.
func PrepareRequest(ctx context.Context, tr *tracing.Tracer, req *httpmsg.Request,
	spanName string) (context.Context, trace.Span) {
	if tr == nil || tr.Tracer == nil || req == nil {
		return ctx, nil
	}
	ctx = propagator.Extract(ctx, headerCarrier(req.Headers))
	ctx, span := NewChildSpan(ctx, tr, spanName)
	SetAttributes(tr, span,
		attribute.String("http.method", req.Method.String()),
		attribute.String("http.target", req.URL.String()),
		attribute.String("http.flavor", req.Version.String()),
	)
	return ctx, span
}

// Inject writes the trace context of ctx into the headers
func Inject(ctx context.Context, h httpmsg.Headers) {
	if h == nil {
		return
	}
	propagator.Inject(ctx, headerCarrier(h))
}

// NewChildSpan returns the context with a new Span situated as the child of the previous span
func NewChildSpan(ctx context.Context, tr *tracing.Tracer,
	spanName string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tr == nil || tr.Tracer == nil {
		return ctx, nil
	}
	ctx, span := tr.Start(ctx, spanName)
	if span != nil && tr.Options != nil && tr.Options.AttachTagsToSpan() {
		span.SetAttributes(tracing.Tags(tr.Options.Tags).ToAttr()...)
	}
	return ctx, span
}

// SetAttributes safely sets attributes on a span, unless they are in the omit list
func SetAttributes(tr *tracing.Tracer, span trace.Span, kvs ...attribute.KeyValue) {
	if tr == nil || span == nil || len(kvs) == 0 {
		return
	}
	span.SetAttributes(filterAttributes(tr, kvs)...)
}

// Finish sets the span status from the response status code and ends it
func Finish(span trace.Span, statusCode int) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.Int("http.status_code", statusCode))
	span.SetStatus(tracing.HTTPToCode(statusCode), httpmsg.StatusText(statusCode))
	span.End()
}

func filterAttributes(tr *tracing.Tracer, kvs []attribute.KeyValue) []attribute.KeyValue {
	if tr.Options == nil || len(tr.Options.OmitTags) == 0 {
		return kvs
	}
	approved := make([]attribute.KeyValue, 0, len(kvs))
	for _, kv := range kvs {
		if _, ok := tr.Options.OmitTags[string(kv.Key)]; !ok {
			approved = append(approved, kv)
		}
	}
	return approved
}
