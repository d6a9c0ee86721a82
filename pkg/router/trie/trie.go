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

// Package trie is a Router that matches request paths against a segment trie
package trie

import (
	"context"
	"fmt"

	"github.com/jwx-server/jwx/pkg/httpmsg"
	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
	"github.com/jwx-server/jwx/pkg/observability/metrics"
	"github.com/jwx-server/jwx/pkg/router"
	"github.com/jwx-server/jwx/pkg/router/route"
	"github.com/jwx-server/jwx/pkg/urls"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var _ router.Router = &trieRouter{}

// node is one trie level. Plain segments descend through literal; Parameter
// and Ignore segments share the single wild child.
type node struct {
	literal map[string]*node
	wild    *node
	route   *route.Route
	handler router.Handler
}

func newNode() *node {
	return &node{literal: make(map[string]*node)}
}

type trieRouter struct {
	root *node
}

type candidate struct {
	route   *route.Route
	handler router.Handler
}

// New builds a Router from the route table. Routes are inserted in sorted
// order, so the outcome of two patterns sharing a terminal node (such as
// /a/{x} and /a/{y}) is the same for every build.
func New(table router.Table) router.Router {
	rt := &trieRouter{root: newNode()}
	patterns := maps.Keys(table)
	slices.Sort(patterns)
	for _, p := range patterns {
		rt.insert(route.Parse(p), table[p])
	}
	return rt
}

func (rt *trieRouter) insert(r *route.Route, h router.Handler) {
	n := rt.root
	for _, seg := range r.Segments {
		if seg.Wild() {
			if n.wild == nil {
				n.wild = newNode()
			}
			n = n.wild
			continue
		}
		next, ok := n.literal[seg.Name]
		if !ok {
			next = newNode()
			n.literal[seg.Name] = next
		}
		n = next
	}
	if n.handler != nil {
		logger.Warn("route replaced by an equivalent pattern",
			logging.Pairs{"route": n.route.Pattern, "replacement": r.Pattern})
	}
	n.route = r
	n.handler = h
}

// collect gathers the candidates reachable from n for the remaining path
// segments, exploring the literal branch before the wild branch
func collect(n *node, path []string, out []candidate) []candidate {
	if n.handler != nil {
		out = append(out, candidate{n.route, n.handler})
	}
	if len(path) == 0 {
		return out
	}
	if next, ok := n.literal[path[0]]; ok {
		out = collect(next, path[1:], out)
	}
	if n.wild != nil {
		out = collect(n.wild, path[1:], out)
	}
	return out
}

func (rt *trieRouter) Resolve(path string) (*route.Route, router.Handler, router.Params, bool) {
	segs := urls.Segments(path)
	cands := collect(rt.root, segs, nil)
	if len(cands) == 0 {
		return nil, nil, nil, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		// strictly greater, so the first-encountered route wins a tie
		if c.route.Len() > best.route.Len() {
			best = c
		}
	}
	return best.route, best.handler, router.Params(best.route.Bind(segs)), true
}

func (rt *trieRouter) Run(ctx context.Context, req *httpmsg.Request) *httpmsg.Response {
	r, h, params, ok := rt.Resolve(req.Path())
	if !ok {
		metrics.RouterResolutions.WithLabelValues("not_found").Inc()
		return router.NotFound(req.Version)
	}
	metrics.RouterResolutions.WithLabelValues("found").Inc()
	resp, err := runHandler(ctx, h, req, params)
	if err != nil {
		logger.Error("handler failed",
			logging.Pairs{"route": r.String(), "path": req.Path(), "detail": err})
		return router.HandlerError(err, req.Version)
	}
	if resp == nil {
		return router.HandlerError(fmt.Errorf("handler for %s returned no response", r), req.Version)
	}
	return resp
}

// runHandler invokes h, converting a panic into an error
func runHandler(ctx context.Context, h router.Handler, req *httpmsg.Request,
	params router.Params) (resp *httpmsg.Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			resp, err = nil, fmt.Errorf("handler panic: %v", p)
		}
	}()
	return h.Handle(ctx, req, params)
}
