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

package options

const (
	// DefaultListenPort is the default port that the HTTP frontend will listen on
	DefaultListenPort = 4955
	// DefaultListenAddress is the default address that the HTTP frontend will listen on
	DefaultListenAddress = ""
	// DefaultConnectionsLimit is the default concurrent connection limit; 0 is unlimited
	DefaultConnectionsLimit = 0
	// DefaultReadPollMS is how long a socket read waits for more bytes before
	// the buffered request is parsed
	DefaultReadPollMS = 10
	// DefaultIdleTimeoutMS is how long a connection may sit without a
	// complete request before it is closed
	DefaultIdleTimeoutMS = 30000
	// DefaultMaxRequestBytes is the largest request a connection will buffer
	DefaultMaxRequestBytes = 8 << 20
)

// DefaultContentEncodings lists the encodings offered for static content
var DefaultContentEncodings = []string{"zstd", "br", "gzip", "deflate"}
