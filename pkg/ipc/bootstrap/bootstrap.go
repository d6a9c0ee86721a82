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

// Package bootstrap implements the login handshake between the frontend and
// a dispatcher process it started. The dispatcher dials back to the frontend,
// presents the key it was started with, and receives its settings. Records are
// msgpack maps carried in length-prefixed frames.
package bootstrap

import (
	"fmt"
	"io"

	"github.com/jwx-server/jwx/pkg/errors"
	"github.com/jwx-server/jwx/pkg/ipc/frame"

	"github.com/tinylib/msgp/msgp"
)

// maxRecordSize bounds a handshake frame
const maxRecordSize = 64 * 1024

// Login is sent by the dispatcher process after it connects
type Login struct {
	Key string
	PID int64
}

// Settings is the frontend's reply to an accepted Login
type Settings struct {
	Accepted    bool
	ListenerPID int64
	FIFODir     string
	UnitMode    string
}

// MarshalMsg implements msgp.Marshaler
func (z *Login) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 2)
	o = msgp.AppendString(o, "key")
	o = msgp.AppendString(o, z.Key)
	o = msgp.AppendString(o, "pid")
	o = msgp.AppendInt64(o, z.PID)
	return o, nil
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Login) UnmarshalMsg(bts []byte) ([]byte, error) {
	n, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, err
	}
	for ; n > 0; n-- {
		var field []byte
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return bts, err
		}
		switch string(field) {
		case "key":
			z.Key, bts, err = msgp.ReadStringBytes(bts)
		case "pid":
			z.PID, bts, err = msgp.ReadInt64Bytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, msgp.WrapError(err, string(field))
		}
	}
	return bts, nil
}

// Msgsize returns an upper bound on the encoded size
func (z *Login) Msgsize() int {
	return msgp.MapHeaderSize + 2*msgp.StringPrefixSize + 6 +
		msgp.StringPrefixSize + len(z.Key) + msgp.Int64Size
}

// MarshalMsg implements msgp.Marshaler
func (z *Settings) MarshalMsg(b []byte) ([]byte, error) {
	o := msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 4)
	o = msgp.AppendString(o, "accepted")
	o = msgp.AppendBool(o, z.Accepted)
	o = msgp.AppendString(o, "listener_pid")
	o = msgp.AppendInt64(o, z.ListenerPID)
	o = msgp.AppendString(o, "fifo_dir")
	o = msgp.AppendString(o, z.FIFODir)
	o = msgp.AppendString(o, "unit_mode")
	o = msgp.AppendString(o, z.UnitMode)
	return o, nil
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Settings) UnmarshalMsg(bts []byte) ([]byte, error) {
	n, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return bts, err
	}
	for ; n > 0; n-- {
		var field []byte
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return bts, err
		}
		switch string(field) {
		case "accepted":
			z.Accepted, bts, err = msgp.ReadBoolBytes(bts)
		case "listener_pid":
			z.ListenerPID, bts, err = msgp.ReadInt64Bytes(bts)
		case "fifo_dir":
			z.FIFODir, bts, err = msgp.ReadStringBytes(bts)
		case "unit_mode":
			z.UnitMode, bts, err = msgp.ReadStringBytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return bts, msgp.WrapError(err, string(field))
		}
	}
	return bts, nil
}

// Msgsize returns an upper bound on the encoded size
func (z *Settings) Msgsize() int {
	return msgp.MapHeaderSize + 4*msgp.StringPrefixSize + 37 + msgp.BoolSize +
		msgp.Int64Size + 2*msgp.StringPrefixSize + len(z.FIFODir) + len(z.UnitMode)
}

func writeRecord(w io.Writer, m msgp.Marshaler) error {
	b, err := m.MarshalMsg(nil)
	if err != nil {
		return err
	}
	return frame.Write(w, b)
}

func readRecord(r io.Reader, u msgp.Unmarshaler) error {
	b, err := frame.Read(r, maxRecordSize)
	if err != nil {
		return err
	}
	_, err = u.UnmarshalMsg(b)
	return err
}

// Dial performs the dispatcher side of the handshake on conn
func Dial(conn io.ReadWriter, key string, pid int64) (*Settings, error) {
	if err := writeRecord(conn, &Login{Key: key, PID: pid}); err != nil {
		return nil, fmt.Errorf("sending login: %w", err)
	}
	s := &Settings{}
	if err := readRecord(conn, s); err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if !s.Accepted {
		return nil, errors.ErrBadLogin
	}
	return s, nil
}

// Accept performs the frontend side of the handshake on conn. A Login
// with the wrong key is answered with a rejection and ErrBadLogin.
func Accept(conn io.ReadWriter, key string, s Settings) (*Login, error) {
	l := &Login{}
	if err := readRecord(conn, l); err != nil {
		return nil, fmt.Errorf("reading login: %w", err)
	}
	if l.Key != key {
		writeRecord(conn, &Settings{})
		return l, errors.ErrBadLogin
	}
	s.Accepted = true
	if err := writeRecord(conn, &s); err != nil {
		return l, fmt.Errorf("sending settings: %w", err)
	}
	return l, nil
}
