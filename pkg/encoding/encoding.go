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

// Package encoding applies content encodings to response bodies
package encoding

import (
	"fmt"

	"github.com/jwx-server/jwx/pkg/encoding/brotli"
	"github.com/jwx-server/jwx/pkg/encoding/deflate"
	"github.com/jwx-server/jwx/pkg/encoding/gzip"
	"github.com/jwx-server/jwx/pkg/encoding/providers"
	"github.com/jwx-server/jwx/pkg/encoding/snappy"
	"github.com/jwx-server/jwx/pkg/encoding/zstd"
)

// Codec encodes or decodes a whole byte slice
type Codec func([]byte) ([]byte, error)

var encoders = map[providers.Provider]Codec{
	providers.Zstandard: zstd.Encode,
	providers.Brotli:    brotli.Encode,
	providers.GZip:      gzip.Encode,
	providers.Deflate:   deflate.Encode,
	providers.Snappy:    snappy.Encode,
}

var decoders = map[providers.Provider]Codec{
	providers.Zstandard: zstd.Decode,
	providers.Brotli:    brotli.Decode,
	providers.GZip:      gzip.Decode,
	providers.Deflate:   deflate.Decode,
	providers.Snappy:    snappy.Decode,
}

// Encode encodes in with a single provider. Identity returns in unchanged.
func Encode(p providers.Provider, in []byte) ([]byte, error) {
	if p == providers.Identity {
		return in, nil
	}
	enc, ok := encoders[p]
	if !ok {
		return nil, fmt.Errorf("unsupported encoding provider %s", p)
	}
	return enc(in)
}

// Decode decodes in with a single provider. Identity returns in unchanged.
func Decode(p providers.Provider, in []byte) ([]byte, error) {
	if p == providers.Identity {
		return in, nil
	}
	dec, ok := decoders[p]
	if !ok {
		return nil, fmt.Errorf("unsupported encoding provider %s", p)
	}
	return dec(in)
}
