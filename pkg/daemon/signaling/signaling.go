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

// Package signaling waits for the signals that end a jwx process
package signaling

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jwx-server/jwx/pkg/observability/logging"
	"github.com/jwx-server/jwx/pkg/observability/logging/logger"
)

// Wait blocks until ctx is done or SIGINT or SIGTERM arrives
func Wait(ctx context.Context) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	select {
	case <-ctx.Done():
	case sig := <-sigs:
		logger.Info("shutdown signal received", logging.Pairs{"signal": sig.String()})
	}
}

// Context returns a context that is cancelled when SIGINT or SIGTERM
// arrives, or when the returned CancelFunc is called
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		Wait(ctx)
		cancel()
	}()
	return ctx, cancel
}
