// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package executor

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/jeranaias/cmdtree/internal/command"
)

// consoleKey is shared by every anonymous invoker.
const consoleKey = "console"

// limiters holds one token bucket per invoker.
type limiters struct {
	limit rate.Limit
	burst int
	byKey map[string]*rate.Limiter
	mu    sync.RWMutex
}

func newLimiters(perSecond float64, burst int) *limiters {
	if burst <= 0 {
		burst = 1
	}
	return &limiters{
		limit: rate.Limit(perSecond),
		burst: burst,
		byKey: make(map[string]*rate.Limiter),
	}
}

func limiterKey(inv command.Invoker) string {
	if command.IsAnonymous(inv) {
		return consoleKey
	}
	return inv.ID()
}

// allow takes one token from inv's bucket.
func (l *limiters) allow(inv command.Invoker) bool {
	return l.get(limiterKey(inv)).Allow()
}

func (l *limiters) get(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.byKey[key]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok = l.byKey[key]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(l.limit, l.burst)
	l.byKey[key] = limiter
	return limiter
}
