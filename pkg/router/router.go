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

// Package router defines the handler capability invoked for dynamic requests
// and the Router that selects a handler for a request path
package router

import (
	"context"

	"github.com/jwx-server/jwx/pkg/httpmsg"
	"github.com/jwx-server/jwx/pkg/router/route"
)

// Params holds the path parameters bound for a request
type Params map[string]string

// Handler produces a Response for a routed Request
type Handler interface {
	Handle(ctx context.Context, req *httpmsg.Request, params Params) (*httpmsg.Response, error)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, req *httpmsg.Request, params Params) (*httpmsg.Response, error)

// Handle calls f(ctx, req, params)
func (f HandlerFunc) Handle(ctx context.Context, req *httpmsg.Request,
	params Params) (*httpmsg.Response, error) {
	return f(ctx, req, params)
}

// Table maps route strings to their Handlers
type Table map[string]Handler

// Router resolves request paths to Handlers. A Router is read-only once built
// and is safe for concurrent use.
type Router interface {
	// Resolve returns the most specific route matching path, its Handler and
	// the parameters bound from path
	Resolve(path string) (*route.Route, Handler, Params, bool)
	// Run resolves req and invokes its Handler. Unmatched paths yield a 404
	// and Handler failures a 500.
	Run(ctx context.Context, req *httpmsg.Request) *httpmsg.Response
}

const (
	// NotFoundBody is the body of the response for an unmatched path
	NotFoundBody = "404: Not Found"
	// HandlerErrorPrefix prefixes the failure in the body of a 500 response
	HandlerErrorPrefix = "500: Internal server error: "
)

// NotFound returns the response for an unmatched path
func NotFound(v httpmsg.Version) *httpmsg.Response {
	return httpmsg.NewTextResponse(404, NotFoundBody, v)
}

// HandlerError returns the response for a failed Handler
func HandlerError(err error, v httpmsg.Version) *httpmsg.Response {
	return httpmsg.NewTextResponse(500, HandlerErrorPrefix+err.Error(), v)
}
