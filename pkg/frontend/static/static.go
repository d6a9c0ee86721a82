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

// Package static serves files from the content root
package static

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jwx-server/jwx/pkg/encoding"
	"github.com/jwx-server/jwx/pkg/encoding/providers"
	"github.com/jwx-server/jwx/pkg/httpmsg"
	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
)

const (
	// IndexFile is served for a directory request ending in a slash
	IndexFile = "index.html"
	// MovedBody is the body of a directory redirect
	MovedBody = "301: Moved Permanently"

	defaultContentType = "application/octet-stream"
	headerVary         = "Vary"
)

type contentType struct {
	mime string
	// compressible types are candidates for a Content-Encoding
	compressible bool
}

var contentTypes = map[string]contentType{
	".html": {"text/html", true},
	".htm":  {"text/html", true},
	".js":   {"text/javascript", true},
	".css":  {"text/css", true},
	".png":  {"image/png", false},
	".jpg":  {"image/jpeg", false},
	".jpeg": {"image/jpeg", false},
	".gif":  {"image/gif", false},
	".ico":  {"image/x-icon", false},
	".svg":  {"image/svg+xml", true},
	".json": {"application/json", true},
	".txt":  {"text/plain", true},
	".wasm": {"application/wasm", true},
}

// ContentType returns the Content-Type for a file name, by extension
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct.mime
	}
	return defaultContentType
}

func compressible(name string) bool {
	return contentTypes[strings.ToLower(filepath.Ext(name))].compressible
}

// Server resolves request paths against a content root
type Server struct {
	root      string
	encodings providers.Provider
}

// New returns a Server for root that may encode compressible content with
// any of the enabled encodings. An empty root serves nothing.
func New(root string, enabled providers.Provider) *Server {
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	return &Server{root: root, encodings: enabled}
}

// Root returns the absolute content root
func (s *Server) Root() string {
	return s.root
}

// resolve maps a request path to a file system path under the root
func (s *Server) resolve(p string) (string, bool) {
	full := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+p)))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

// Serve returns the response for req when its path names a file or
// directory under the content root. A directory requested without a
// trailing slash is redirected to the slashed form; one with a trailing
// slash serves its index file. ok is false when nothing under the root
// matches, and the request should be dispatched dynamically.
func (s *Server) Serve(req *httpmsg.Request) (resp *httpmsg.Response, ok bool) {
	if s == nil || s.root == "" {
		return nil, false
	}
	reqPath := req.Path()
	full, ok := s.resolve(reqPath)
	if !ok {
		logger.Debug("static path outside content root", logging.Pairs{"path": reqPath})
		return nil, false
	}
	fi, err := os.Stat(full)
	if err != nil {
		return nil, false
	}
	if fi.IsDir() {
		if !strings.HasSuffix(reqPath, "/") {
			resp = httpmsg.NewResponse(301, httpmsg.Headers{
				httpmsg.HeaderLocation:    reqPath + "/",
				httpmsg.HeaderContentType: "text/plain",
			}, []byte(MovedBody), req.Version)
			return s.finish(req, resp), true
		}
		full = filepath.Join(full, IndexFile)
		if fi, err = os.Stat(full); err != nil || !fi.Mode().IsRegular() {
			return nil, false
		}
	} else if !fi.Mode().IsRegular() {
		return nil, false
	}
	return s.serveFile(req, full)
}

func (s *Server) serveFile(req *httpmsg.Request, full string) (*httpmsg.Response, bool) {
	data, err := os.ReadFile(full)
	if err != nil {
		logger.Warn("static file read failed", logging.Pairs{"path": full, "detail": err})
		return nil, false
	}
	h := httpmsg.Headers{httpmsg.HeaderContentType: ContentType(full)}
	if ae, _ := req.Headers.Get(httpmsg.HeaderAcceptEncoding); compressible(full) {
		if p := providers.Negotiate(ae, s.encodings); p != providers.Identity {
			if enc, err := encoding.Encode(p, data); err == nil {
				data = enc
				h[httpmsg.HeaderContentEncoding] = p.String()
				h[headerVary] = httpmsg.HeaderAcceptEncoding
			} else {
				logger.Warn("static content encoding failed",
					logging.Pairs{"path": full, "encoding": p.String(), "detail": err})
			}
		}
	}
	return s.finish(req, httpmsg.NewResponse(200, h, data, req.Version)), true
}

// finish drops the body of a HEAD response, keeping its Content-Length
func (s *Server) finish(req *httpmsg.Request, resp *httpmsg.Response) *httpmsg.Response {
	if req.Method == httpmsg.MethodHead {
		resp.Content = nil
	}
	return resp
}
