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

// Package options holds the configuration of the HTTP frontend
package options

import (
	"fmt"

	"github.com/jwx-server/jwx/pkg/encoding/providers"
	"github.com/jwx-server/jwx/pkg/errors"

	"golang.org/x/exp/slices"
)

// Options is a collection of configurations for the main http frontend for the application
type Options struct {
	// ListenAddress is IP address for the main http listener for the application
	ListenAddress string `yaml:"listen_address,omitempty"`
	// ListenPort is TCP Port for the main http listener for the application
	ListenPort int `yaml:"listen_port,omitempty"`
	// ConnectionsLimit indicates how many concurrent front end connections jwx will handle at any time
	ConnectionsLimit int `yaml:"connections_limit,omitempty"`
	// ReadPollMS is the socket read deadline after which buffered bytes are parsed
	ReadPollMS int `yaml:"read_poll_ms,omitempty"`
	// IdleTimeoutMS closes a connection that has not completed a request in this time
	IdleTimeoutMS int `yaml:"idle_timeout_ms,omitempty"`
	// MaxRequestBytes caps the bytes buffered for a single request
	MaxRequestBytes int `yaml:"max_request_bytes,omitempty"`
	// ContentEncodings lists the encodings offered for static content, in
	// addition to identity
	ContentEncodings []string `yaml:"content_encodings,omitempty"`

	// EncodingsBitmap is the parsed ContentEncodings
	EncodingsBitmap providers.Provider `yaml:"-"`
}

// New returns a new Frontend Options with default values
func New() *Options {
	return &Options{
		ListenPort:       DefaultListenPort,
		ListenAddress:    DefaultListenAddress,
		ConnectionsLimit: DefaultConnectionsLimit,
		ReadPollMS:       DefaultReadPollMS,
		IdleTimeoutMS:    DefaultIdleTimeoutMS,
		MaxRequestBytes:  DefaultMaxRequestBytes,
		ContentEncodings: slices.Clone(DefaultContentEncodings),
	}
}

// Equal returns true if the Options are identical in value.
func (o *Options) Equal(o2 *Options) bool {
	return o.ListenAddress == o2.ListenAddress &&
		o.ListenPort == o2.ListenPort &&
		o.ConnectionsLimit == o2.ConnectionsLimit &&
		o.ReadPollMS == o2.ReadPollMS &&
		o.IdleTimeoutMS == o2.IdleTimeoutMS &&
		o.MaxRequestBytes == o2.MaxRequestBytes &&
		slices.Equal(o.ContentEncodings, o2.ContentEncodings)
}

// Clone returns a clone of the Options
func (o *Options) Clone() *Options {
	co := *o
	co.ContentEncodings = slices.Clone(o.ContentEncodings)
	return &co
}

// Validate checks the Options and parses the content encodings
func (o *Options) Validate() error {
	if o.ListenPort < 0 || o.ListenPort > 65535 {
		return fmt.Errorf("%w: %d", errors.ErrInvalidPort, o.ListenPort)
	}
	if o.ConnectionsLimit < 0 {
		return fmt.Errorf("%w: connections_limit must not be negative", errors.ErrInvalidOptions)
	}
	if o.ReadPollMS <= 0 || o.IdleTimeoutMS <= 0 {
		return fmt.Errorf("%w: read_poll_ms and idle_timeout_ms must be positive",
			errors.ErrInvalidTimeout)
	}
	if o.MaxRequestBytes <= 0 {
		return fmt.Errorf("%w: max_request_bytes must be positive", errors.ErrInvalidOptions)
	}
	b, err := providers.ParseList(o.ContentEncodings)
	if err != nil {
		return err
	}
	o.EncodingsBitmap = b
	return nil
}
