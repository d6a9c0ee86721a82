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
	"os"
	"path/filepath"
	"testing"

	"github.com/jwx-server/jwx/pkg/errors"

	"github.com/stretchr/testify/require"
)

func TestFIFO(t *testing.T) {
	f, err := NewFIFO(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, KindFIFO, f.Kind())
	require.Equal(t, filepath.Join(f.Dir(), "jwx_client_7_3.in"), f.Path("7_3", In))
	exercise(t, f)
	openTimesOut(t, f)
}

func TestFIFONoSuchChannel(t *testing.T) {
	f, err := NewFIFO(t.TempDir())
	require.NoError(t, err)
	_, err = f.OpenReader(context.Background(), "nope", Out)
	require.ErrorIs(t, err, errors.ErrNoSuchChannel)

	// a regular file is not a channel
	require.NoError(t, os.WriteFile(f.Path("reg", Out), nil, 0o600))
	require.NoError(t, os.WriteFile(f.Path("reg", In), nil, 0o600))
	require.False(t, f.Exists("reg"))
}
