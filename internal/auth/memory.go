// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"sync"
	"time"
)

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	session Session
}

// NewMemoryStore creates a store seeded with an access token (may be empty).
func NewMemoryStore(accessToken string) *MemoryStore {
	return &MemoryStore{session: Session{AccessToken: accessToken}}
}

// AccessToken implements api.TokenStore.
func (m *MemoryStore) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.AccessToken
}

// RefreshToken implements api.TokenStore.
func (m *MemoryStore) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.RefreshToken
}

// SetTokens implements api.TokenStore.
func (m *MemoryStore) SetTokens(access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.AccessToken = access
	m.session.RefreshToken = refresh
	m.session.SavedAt = time.Now()
	return nil
}

// Session returns a copy of the stored session.
func (m *MemoryStore) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Save replaces the stored session.
func (m *MemoryStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	return nil
}

// Clear forgets all credentials.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{}
	return nil
}
