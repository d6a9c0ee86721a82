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

// Package frame reads and writes length-prefixed payloads. The prefix is an
// 8-byte unsigned length in little-endian byte order.
package frame

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jwx-server/jwx/pkg/errors"
)

// PrefixSize is the size of the length prefix in bytes
const PrefixSize = 8

// AppendLength appends the length prefix for n to b
func AppendLength(b []byte, n uint64) []byte {
	return binary.LittleEndian.AppendUint64(b, n)
}

// Write writes payload to w behind its length prefix, in a single Write
func Write(w io.Writer, payload []byte) error {
	b := make([]byte, 0, PrefixSize+len(payload))
	b = AppendLength(b, uint64(len(payload)))
	b = append(b, payload...)
	_, err := w.Write(b)
	return err
}

// ReadLength reads a length prefix from r
func ReadLength(r io.Reader) (uint64, error) {
	var b [PrefixSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Read reads one frame from r. A length over limit fails with
// ErrPayloadTooLarge before anything is allocated; limit 0 means no limit.
func Read(r io.Reader, limit uint64) ([]byte, error) {
	n, err := ReadLength(r)
	if err != nil {
		return nil, err
	}
	if limit > 0 && n > limit {
		return nil, fmt.Errorf("%w: %d > %d", errors.ErrPayloadTooLarge, n, limit)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return b, nil
}
