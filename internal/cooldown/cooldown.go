// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cooldown

import (
	"sync"
	"time"
)

// =============================================================================
// KEYS
// =============================================================================

// GlobalIdentity is the identity used for global-scope cooldowns.
const GlobalIdentity = "\x00global"

// Key builds the cooldown key for an identity and a command path.
func Key(identity, path string) string {
	return identity + ":" + path
}

// GlobalKey builds the shared cooldown key for a command path.
func GlobalKey(path string) string {
	return Key(GlobalIdentity, path)
}

// =============================================================================
// MANAGER
// =============================================================================

// Clock returns the current time.
type Clock func() time.Time

// Manager stores cooldown expiry instants. It is safe for concurrent use.
type Manager struct {
	expiries map[string]time.Time
	now      Clock
	mu       sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the time source.
func WithClock(c Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.now = c
		}
	}
}

// NewManager creates an empty manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		expiries: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsOnCooldown reports whether key has an unexpired cooldown.
func (m *Manager) IsOnCooldown(key string) bool {
	return m.Remaining(key) > 0
}

// Remaining returns the time left on key's cooldown, or 0. An expired entry
// is removed.
func (m *Manager) Remaining(key string) time.Duration {
	m.mu.RLock()
	expiry, ok := m.expiries[key]
	m.mu.RUnlock()
	if !ok {
		return 0
	}

	remaining := expiry.Sub(m.now())
	if remaining > 0 {
		return remaining
	}

	m.mu.Lock()
	// Another writer may have refreshed the entry since the read.
	if cur, ok := m.expiries[key]; ok && !cur.After(m.now()) {
		delete(m.expiries, key)
	}
	m.mu.Unlock()
	return 0
}

// RemainingSeconds returns the remaining cooldown rounded up to whole seconds.
func (m *Manager) RemainingSeconds(key string) int {
	return Seconds(m.Remaining(key))
}

// Seconds rounds a positive duration up to whole seconds.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// Set starts a cooldown of d on key, replacing any existing one.
// A non-positive d clears the key.
func (m *Manager) Set(key string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d <= 0 {
		delete(m.expiries, key)
		return
	}
	m.expiries[key] = m.now().Add(d)
}

// Clear removes key's cooldown.
func (m *Manager) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expiries, key)
}

// Acquire starts a cooldown of d on key unless one is already running, in
// which case it returns the time left and false. The check and the set happen
// under one lock.
func (m *Manager) Acquire(key string, d time.Duration) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expiry, ok := m.expiries[key]; ok {
		if remaining := expiry.Sub(now); remaining > 0 {
			return remaining, false
		}
		delete(m.expiries, key)
	}
	if d > 0 {
		m.expiries[key] = now.Add(d)
	}
	return 0, true
}

// Cleanup removes every expired entry and returns how many were removed.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cleaned := 0
	for key, expiry := range m.expiries {
		if !expiry.After(now) {
			delete(m.expiries, key)
			cleaned++
		}
	}
	return cleaned
}

// Len returns the number of stored entries, expired or not.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.expiries)
}

// =============================================================================
// GLOBAL INSTANCE
// =============================================================================

var (
	globalManager     *Manager
	globalManagerOnce sync.Once
	globalManagerMu   sync.Mutex
)

// Global returns the process-wide manager, creating it on first use.
func Global() *Manager {
	globalManagerOnce.Do(func() {
		globalManagerMu.Lock()
		defer globalManagerMu.Unlock()
		if globalManager == nil {
			globalManager = NewManager()
		}
	})
	globalManagerMu.Lock()
	defer globalManagerMu.Unlock()
	return globalManager
}

// SetGlobal replaces the process-wide manager.
func SetGlobal(m *Manager) {
	globalManagerOnce.Do(func() {})
	globalManagerMu.Lock()
	defer globalManagerMu.Unlock()
	globalManager = m
}
