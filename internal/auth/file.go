// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jeranaias/taxease-tui/internal/util"
)

// FileStore persists credentials to a single file.
type FileStore struct {
	path string

	mu      sync.RWMutex
	session Session
	sealer  *sealer // nil when stored in plaintext
}

// OpenFileStore loads credentials from path. A missing file yields an
// empty store. With a non-empty passphrase the file is written encrypted;
// an encrypted file cannot be opened without one.
func OpenFileStore(path, passphrase string) (*FileStore, error) {
	fs := &FileStore{path: path}
	if passphrase != "" {
		fs.sealer = &sealer{passphrase: passphrase}
	}
	if err := fs.Reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Path returns the credentials file location.
func (f *FileStore) Path() string {
	return f.path
}

// Encrypted reports whether writes are encrypted.
func (f *FileStore) Encrypted() bool {
	return f.sealer != nil
}

// Reload re-reads the file, replacing the in-memory session.
func (f *FileStore) Reload() error {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		f.mu.Lock()
		f.session = Session{}
		f.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if isEncrypted(data) {
		if f.sealer == nil {
			return ErrPassphraseRequired
		}
		data, err = f.sealer.open(data)
		if err != nil {
			return err
		}
	}

	var s Session
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to parse credentials: %w", err)
		}
	}
	f.session = s
	return nil
}

// AccessToken implements api.TokenStore.
func (f *FileStore) AccessToken() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.session.AccessToken
}

// RefreshToken implements api.TokenStore.
func (f *FileStore) RefreshToken() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.session.RefreshToken
}

// SetTokens implements api.TokenStore and persists the new pair.
func (f *FileStore) SetTokens(access, refresh string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session.AccessToken = access
	f.session.RefreshToken = refresh
	f.session.SavedAt = time.Now()
	return f.writeLocked()
}

// Session returns a copy of the stored session.
func (f *FileStore) Session() Session {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.session
}

// Save replaces and persists the session.
func (f *FileStore) Save(s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = s
	return f.writeLocked()
}

// Clear removes the credentials file.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = Session{}
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

func (f *FileStore) writeLocked() error {
	data, err := json.MarshalIndent(f.session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if f.sealer != nil {
		data, err = f.sealer.seal(data)
		if err != nil {
			return err
		}
	}
	if err := util.AtomicWriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}
