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

package isolation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	jerrors "github.com/jwx-server/jwx/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoroutineSpawn(t *testing.T) {
	var mtx sync.Mutex
	seen := map[string]int{}
	g := NewGoroutine(context.Background(), func(ctx context.Context, id string) error {
		mtx.Lock()
		defer mtx.Unlock()
		seen[id]++
		switch id {
		case "fail":
			return errors.New("unit failed")
		case "panic":
			panic("unit panic")
		}
		return nil
	})
	require.Equal(t, ModeGoroutine, g.Mode())
	for _, id := range []string{"a", "b", "fail", "panic"} {
		require.NoError(t, g.Spawn(id))
	}
	g.Wait()
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "fail": 1, "panic": 1}, seen)
}

func TestGoroutineSpawnAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGoroutine(ctx, func(context.Context, string) error { return nil })
	err := g.Spawn("a")
	require.True(t, errors.Is(err, jerrors.ErrSpawnFailed))
}

func TestProcessSpawn(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "unit")
	p := NewProcess(context.Background(), "/bin/sh",
		[]string{"-c", `printf "%s" "$` + EnvUnitID + `" > "$OUT_FILE"`},
		[]string{"OUT_FILE=" + out}, time.Second*5)
	require.Equal(t, ModeProcess, p.Mode())
	require.NoError(t, p.Spawn("1234_0"))
	p.Wait()
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "1234_0", string(b))
}

func TestProcessTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	p := NewProcess(context.Background(), "/bin/sh", []string{"-c", "sleep 10"},
		nil, time.Millisecond*50)
	start := time.Now()
	require.NoError(t, p.Spawn("slow"))
	p.Wait()
	assert.Less(t, time.Since(start), time.Second*5)
}

func TestProcessSpawnFailure(t *testing.T) {
	p := NewProcess(context.Background(), filepath.Join(t.TempDir(), "missing"),
		nil, nil, 0)
	err := p.Spawn("a")
	require.True(t, errors.Is(err, jerrors.ErrSpawnFailed))
	p.Wait()
}
