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

import (
	"runtime"
	"testing"
	"time"

	"github.com/jwx-server/jwx/pkg/dispatcher/isolation"
	"github.com/jwx-server/jwx/pkg/errors"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	o := New()
	require.NoError(t, o.Validate())
	require.True(t, o.InProcess())
	require.Equal(t, 5*time.Second, o.HandshakeTimeout())
	require.Equal(t, 5*time.Second, o.ExchangeTimeout())
	require.Equal(t, 30*time.Second, o.UnitTimeout())

	o2 := o.Clone()
	o2.UnitMode = isolation.ModeProcess
	require.Equal(t, isolation.ModeGoroutine, o.UnitMode)
	require.False(t, o2.InProcess())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		err    error
	}{
		{"bad dispatcher mode", func(o *Options) { o.DispatcherMode = "thread" }, errors.ErrInvalidMode},
		{"bad unit mode", func(o *Options) { o.UnitMode = "fork" }, errors.ErrInvalidMode},
		{"zero handshake", func(o *Options) { o.HandshakeTimeoutMS = 0 }, errors.ErrInvalidTimeout},
		{"negative unit timeout", func(o *Options) { o.UnitTimeoutMS = -1 }, errors.ErrInvalidTimeout},
		{"zero payload", func(o *Options) { o.MaxPayloadBytes = 0 }, errors.ErrInvalidOptions},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			o := New()
			test.modify(o)
			require.ErrorIs(t, o.Validate(), test.err)
		})
	}
}

func TestValidateProcessModes(t *testing.T) {
	o := New()
	o.DispatcherMode = ModeProcess
	o.UnitMode = isolation.ModeProcess
	err := o.Validate()
	if runtime.GOOS == "windows" {
		require.ErrorIs(t, err, errors.ErrUnsupportedPlatform)
		return
	}
	require.NoError(t, err)
}
