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

//go:build !windows

package datachan

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jwx-server/jwx/pkg/errors"

	"golang.org/x/sys/unix"
)

var _ Transport = &FIFO{}

// FIFOPrefix prefixes every named pipe created in the FIFO directory
const FIFOPrefix = "jwx_client_"

// unblockInterval is how often a cancelled open retries unblocking itself
const unblockInterval = 10 * time.Millisecond

// FIFO is a Transport of named pipes in a directory, usable between
// processes. Opening one end of a pipe blocks until the other end is opened.
type FIFO struct {
	dir string
}

// FIFOSupported is true on platforms that provide named pipes
const FIFOSupported = true

// NewFIFO returns a FIFO Transport rooted at dir
func NewFIFO(dir string) (*FIFO, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FIFO{dir: dir}, nil
}

func (f *FIFO) Kind() string {
	return KindFIFO
}

// Dir returns the directory holding the pipes
func (f *FIFO) Dir() string {
	return f.dir
}

// Path returns the file path of a channel
func (f *FIFO) Path(id string, d Direction) string {
	return filepath.Join(f.dir, FIFOPrefix+Name(id, d))
}

func (f *FIFO) Create(id string) error {
	out, in := f.Path(id, Out), f.Path(id, In)
	if err := mkfifo(out); err != nil {
		return err
	}
	if err := mkfifo(in); err != nil {
		os.Remove(out)
		return err
	}
	return nil
}

func mkfifo(path string) error {
	err := unix.Mkfifo(path, 0o600)
	if err == unix.EEXIST {
		return errors.ErrChannelExists
	}
	if err != nil {
		return &os.PathError{Op: "mkfifo", Path: path, Err: err}
	}
	return nil
}

func isFIFO(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode()&os.ModeNamedPipe != 0
}

func (f *FIFO) Exists(id string) bool {
	return isFIFO(f.Path(id, Out)) && isFIFO(f.Path(id, In))
}

func (f *FIFO) Remove(id string) error {
	var firstErr error
	for _, d := range []Direction{Out, In} {
		if err := os.Remove(f.Path(id, d)); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type openResult struct {
	f   *os.File
	err error
}

// open opens path with flag in a goroutine. If ctx is done first, the peer
// end is opened non-blocking (peerFlag) to release the pending open, which
// is then closed.
func open(ctx context.Context, path string, flag, peerFlag int) (*os.File, error) {
	if !isFIFO(path) {
		return nil, errors.ErrNoSuchChannel
	}
	done := make(chan openResult, 1)
	go func() {
		f, err := os.OpenFile(path, flag, 0)
		done <- openResult{f, err}
	}()
	select {
	case r := <-done:
		return r.f, r.err
	case <-ctx.Done():
	}
	for {
		if fd, err := unix.Open(path, peerFlag|unix.O_NONBLOCK|unix.O_CLOEXEC, 0); err == nil {
			unix.Close(fd)
		}
		select {
		case r := <-done:
			if r.f != nil {
				r.f.Close()
			}
			return nil, ctx.Err()
		case <-time.After(unblockInterval):
		}
	}
}

func (f *FIFO) OpenWriter(ctx context.Context, id string, d Direction) (io.WriteCloser, error) {
	return open(ctx, f.Path(id, d), os.O_WRONLY, unix.O_RDONLY)
}

func (f *FIFO) OpenReader(ctx context.Context, id string, d Direction) (io.ReadCloser, error) {
	return open(ctx, f.Path(id, d), os.O_RDONLY, unix.O_WRONLY)
}
