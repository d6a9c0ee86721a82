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

// Package control implements the control protocol spoken between the
// frontend and the dispatcher: tagged Poll, Ok, Close and Request messages
// over a single shared channel.
package control

import (
	"fmt"
	"io"

	"github.com/jwx-server/jwx/pkg/errors"
	"github.com/jwx-server/jwx/pkg/ipc/frame"
)

// Type is the tag byte leading every control message
type Type byte

const (
	TypePoll    Type = 'p'
	TypeOk      Type = 'o'
	TypeClose   Type = 'c'
	TypeRequest Type = 'r'
)

func (t Type) String() string {
	switch t {
	case TypePoll:
		return "poll"
	case TypeOk:
		return "ok"
	case TypeClose:
		return "close"
	case TypeRequest:
		return "request"
	}
	return fmt.Sprintf("unknown(%q)", byte(t))
}

// Message is a control message. ID is only meaningful for Request.
type Message struct {
	Type Type
	ID   string
}

var (
	Poll  = Message{Type: TypePoll}
	Ok    = Message{Type: TypeOk}
	Close = Message{Type: TypeClose}
)

// Request returns a Request message for the request id
func Request(id string) Message {
	return Message{Type: TypeRequest, ID: id}
}

func (m Message) String() string {
	if m.Type == TypeRequest {
		return "request{" + m.ID + "}"
	}
	return m.Type.String()
}

// DefaultMaxIDLength bounds the id length accepted by Decode
const DefaultMaxIDLength = 1 << 20

// DecodeError is returned for an unrecognized tag or a truncated payload
type DecodeError struct {
	Tag byte
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("control message decode error (tag %q): %v", e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Append appends the encoded message to b
func Append(b []byte, m Message) []byte {
	b = append(b, byte(m.Type))
	if m.Type == TypeRequest {
		b = frame.AppendLength(b, uint64(len(m.ID)))
		b = append(b, m.ID...)
	}
	return b
}

// Encode writes the message to w in a single Write
func Encode(w io.Writer, m Message) error {
	_, err := w.Write(Append(make([]byte, 0, 1+frame.PrefixSize+len(m.ID)), m))
	return err
}

// Decode reads one message from r. A clean end of input before the tag is
// returned as io.EOF; anything else that fails is a *DecodeError.
func Decode(r io.Reader, maxIDLength uint64) (Message, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return Message{}, err
	}
	t := Type(tag[0])
	switch t {
	case TypePoll, TypeOk, TypeClose:
		return Message{Type: t}, nil
	case TypeRequest:
		id, err := frame.Read(r, maxIDLength)
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return Message{}, &DecodeError{Tag: tag[0], Err: err}
		}
		return Request(string(id)), nil
	}
	return Message{}, &DecodeError{Tag: tag[0], Err: errors.ErrUnknownControlTag}
}
