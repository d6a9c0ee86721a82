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

package datachan

import (
	"context"
	"io"
	"sync"

	"github.com/jwx-server/jwx/pkg/errors"
)

var _ Transport = &Memory{}

// Memory is a Transport for units that share the frontend's process. Each
// channel is an io.Pipe whose ends are handed out once both sides have opened.
type Memory struct {
	mtx      sync.Mutex
	channels map[string]*memChannel
}

type memChannel struct {
	r          *io.PipeReader
	w          *io.PipeWriter
	readerOpen chan struct{}
	writerOpen chan struct{}
	removed    chan struct{}
	rOnce      sync.Once
	wOnce      sync.Once
}

func newMemChannel() *memChannel {
	r, w := io.Pipe()
	return &memChannel{
		r:          r,
		w:          w,
		readerOpen: make(chan struct{}),
		writerOpen: make(chan struct{}),
		removed:    make(chan struct{}),
	}
}

// NewMemory returns an empty in-process Transport
func NewMemory() *Memory {
	return &Memory{channels: make(map[string]*memChannel)}
}

func (m *Memory) Kind() string {
	return KindMemory
}

func (m *Memory) Create(id string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if _, ok := m.channels[Name(id, Out)]; ok {
		return errors.ErrChannelExists
	}
	m.channels[Name(id, Out)] = newMemChannel()
	m.channels[Name(id, In)] = newMemChannel()
	return nil
}

func (m *Memory) Exists(id string) bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	_, ok1 := m.channels[Name(id, Out)]
	_, ok2 := m.channels[Name(id, In)]
	return ok1 && ok2
}

func (m *Memory) get(id string, d Direction) (*memChannel, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	c, ok := m.channels[Name(id, d)]
	if !ok {
		return nil, errors.ErrNoSuchChannel
	}
	return c, nil
}

// rendezvous marks this side open and waits for the peer side
func rendezvous(ctx context.Context, c *memChannel, mine, peer chan struct{},
	once *sync.Once) error {
	once.Do(func() { close(mine) })
	select {
	case <-peer:
		return nil
	case <-c.removed:
		return errors.ErrNoSuchChannel
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) OpenWriter(ctx context.Context, id string, d Direction) (io.WriteCloser, error) {
	c, err := m.get(id, d)
	if err != nil {
		return nil, err
	}
	if err := rendezvous(ctx, c, c.writerOpen, c.readerOpen, &c.wOnce); err != nil {
		return nil, err
	}
	return c.w, nil
}

func (m *Memory) OpenReader(ctx context.Context, id string, d Direction) (io.ReadCloser, error) {
	c, err := m.get(id, d)
	if err != nil {
		return nil, err
	}
	if err := rendezvous(ctx, c, c.readerOpen, c.writerOpen, &c.rOnce); err != nil {
		return nil, err
	}
	return c.r, nil
}

func (m *Memory) Remove(id string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	for _, d := range []Direction{Out, In} {
		n := Name(id, d)
		c, ok := m.channels[n]
		if !ok {
			continue
		}
		close(c.removed)
		c.r.CloseWithError(errors.ErrNoSuchChannel)
		c.w.CloseWithError(errors.ErrNoSuchChannel)
		delete(m.channels, n)
	}
	return nil
}
