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

package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jwx-server/jwx/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartNonServing(t *testing.T) {
	require.NoError(t, Start([]string{"-version"}))
	require.NoError(t, Start([]string{"-validate-config", "-config-dir", t.TempDir()}))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("frontend: [\n"), 0o644))
	assert.Error(t, Start([]string{"-validate-config", "-config", bad}))
}

func TestStartTwice(t *testing.T) {
	mtx.Lock()
	wasStarted = true
	mtx.Unlock()
	defer func() { wasStarted = false }()
	assert.Equal(t, errors.ErrServerAlreadyStarted, Start([]string{"-version"}))
}
