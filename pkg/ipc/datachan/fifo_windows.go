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

//go:build windows

package datachan

import (
	"context"
	"io"

	"github.com/jwx-server/jwx/pkg/errors"
)

var _ Transport = &FIFO{}

// FIFOSupported is true on platforms that provide named pipes
const FIFOSupported = false

// FIFO is unavailable on windows; every operation fails
type FIFO struct{}

// NewFIFO returns ErrUnsupportedPlatform on windows
func NewFIFO(string) (*FIFO, error) {
	return nil, errors.ErrUnsupportedPlatform
}

func (f *FIFO) Kind() string { return KindFIFO }

func (f *FIFO) Dir() string { return "" }

func (f *FIFO) Create(string) error { return errors.ErrUnsupportedPlatform }

func (f *FIFO) Exists(string) bool { return false }

func (f *FIFO) Remove(string) error { return errors.ErrUnsupportedPlatform }

func (f *FIFO) OpenWriter(context.Context, string, Direction) (io.WriteCloser, error) {
	return nil, errors.ErrUnsupportedPlatform
}

func (f *FIFO) OpenReader(context.Context, string, Direction) (io.ReadCloser, error) {
	return nil, errors.ErrUnsupportedPlatform
}
