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

// Package datachan provides the per-request data channels that carry a
// serialized request to an isolation unit and its serialized response back.
// Each request id names two channels: "<id>.out" from the frontend to the
// unit and "<id>.in" from the unit to the frontend. The frontend creates both
// before admitting the request and removes them once the response is read.
package datachan

import (
	"context"
	"io"
)

// Direction identifies one of the two channels of a request id
type Direction string

const (
	// Out carries the request from the frontend to the unit
	Out Direction = "out"
	// In carries the response from the unit to the frontend
	In Direction = "in"
)

// Name returns the channel name for id in direction d
func Name(id string, d Direction) string {
	return id + "." + string(d)
}

// Transport creates, opens and removes data channels. Opening a channel
// blocks until the peer opens the other end, or ctx is done.
type Transport interface {
	// Kind returns the transport's name
	Kind() string
	// Create creates both channels for id
	Create(id string) error
	// Exists returns true if both channels for id exist
	Exists(id string) bool
	// OpenWriter opens the writing end of a channel
	OpenWriter(ctx context.Context, id string, d Direction) (io.WriteCloser, error)
	// OpenReader opens the reading end of a channel
	OpenReader(ctx context.Context, id string, d Direction) (io.ReadCloser, error)
	// Remove deletes both channels for id, unblocking any pending opens
	Remove(id string) error
}

const (
	KindMemory = "memory"
	KindFIFO   = "fifo"
)
