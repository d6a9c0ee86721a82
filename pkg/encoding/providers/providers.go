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

// Package providers enumerates the content encodings jwx can apply and
// negotiates them against a client's Accept-Encoding header
package providers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jwx-server/jwx/pkg/errors"
)

// Provider is a bitmap of encodings
type Provider byte

const (
	Zstandard Provider = 1 << iota
	Brotli             // 2
	GZip               // 4
	Deflate            // 8
	Identity  Provider = 0 // no encoding
	// snappy is not a registered HTTP content coding, so browsers will not
	// ask for it; it is offered only to clients that name it explicitly
	Snappy Provider = 128

	// for use in headers
	ZstandardValue = "zstd"
	BrotliValue    = "br"
	GZipValue      = "gzip"
	DeflateValue   = "deflate"
	SnappyValue    = "snappy"
	// might be used in configs
	ZstandardAltValue = "zstandard"
	BrotliAltValue    = "brotli"
)

// Lookup maps encoding names to providers
type Lookup map[string]Provider

// preference is the server's order of preference when a client accepts more
// than one encoding
var preference = []Provider{Zstandard, Brotli, GZip, Deflate, Snappy}

var providerValLookup = map[Provider]string{
	Zstandard: ZstandardValue,
	Brotli:    BrotliValue,
	GZip:      GZipValue,
	Deflate:   DeflateValue,
	Snappy:    SnappyValue,
}

var providerLookup = Lookup{
	ZstandardValue:    Zstandard,
	BrotliValue:       Brotli,
	GZipValue:         GZip,
	DeflateValue:      Deflate,
	SnappyValue:       Snappy,
	ZstandardAltValue: Zstandard,
	BrotliAltValue:    Brotli,
}

// All is the bitmap of every supported provider
const All = Zstandard | Brotli | GZip | Deflate | Snappy

func (p Provider) String() string {
	if v, ok := providerValLookup[p]; ok {
		return v
	}
	return strconv.Itoa(int(p))
}

// Providers returns the header names of all supported encodings, in order of
// preference
func Providers() []string {
	out := make([]string, len(preference))
	for i, p := range preference {
		out[i] = providerValLookup[p]
	}
	return out
}

// ProviderID returns the Provider for an encoding name, or 0 if unknown
func ProviderID(providerName string) Provider {
	return providerLookup[strings.ToLower(strings.TrimSpace(providerName))]
}

// ParseList returns the bitmap of the named encodings
func ParseList(names []string) (Provider, error) {
	var b Provider
	for _, n := range names {
		p := ProviderID(n)
		if p == 0 {
			return 0, fmt.Errorf("%w: unknown content encoding %q", errors.ErrInvalidOptions, n)
		}
		b |= p
	}
	return b, nil
}

// Accepted returns the bitmap of supported encodings listed in an
// Accept-Encoding header value. Codings with q=0 are refused; "*" accepts
// every provider except snappy.
func Accepted(acceptEncoding string) Provider {
	var b Provider
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(part, ";")
		if refused(params) {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "*" {
			b |= All &^ Snappy
			continue
		}
		b |= ProviderID(name)
	}
	return b
}

func refused(params string) bool {
	for _, p := range strings.Split(params, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || !strings.EqualFold(k, "q") {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return err == nil && q <= 0
	}
	return false
}

// Negotiate returns the most preferred provider that is both enabled and
// accepted by the client, or Identity
func Negotiate(acceptEncoding string, enabled Provider) Provider {
	if acceptEncoding == "" || enabled == Identity {
		return Identity
	}
	b := Accepted(acceptEncoding) & enabled
	for _, p := range preference {
		if b&p == p {
			return p
		}
	}
	return Identity
}
