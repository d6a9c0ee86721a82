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

// Package ids generates request ids: the process id and a counter
package ids

import (
	"os"
	"strconv"
	"sync/atomic"
)

// Generator produces ids unique within one process's lifetime
type Generator struct {
	prefix  string
	counter atomic.Uint64
}

// New returns a Generator prefixed with the current process id
func New() *Generator {
	return NewWithPrefix(strconv.Itoa(os.Getpid()))
}

// NewWithPrefix returns a Generator with a fixed prefix
func NewWithPrefix(prefix string) *Generator {
	return &Generator{prefix: prefix}
}

// Next returns the next id, "<prefix>_<counter>"
func (g *Generator) Next() string {
	return g.prefix + "_" + strconv.FormatUint(g.counter.Add(1)-1, 10)
}
