// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/taxease-tui/internal/api"
)

func init() {
	// Keep key derivation cheap in tests.
	KeyIterations = 1000
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
)

func TestSessionFromTokens(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := SessionFromTokens(&api.TokenResponse{
		AccessToken:  "a",
		RefreshToken: "r",
		ExpiresIn:    1800,
		User:         api.User{ID: "7", Email: "ada@example.ng", FullName: "Ada Obi"},
	}, now)

	assert.Equal(t, now.Add(30*time.Minute), s.ExpiresAt)
	assert.Equal(t, "Ada Obi", s.DisplayName())
	assert.True(t, s.LoggedIn())
	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Hour)))
	assert.False(t, Session{}.Expired(now), "unknown expiry never expires")
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore("tok")
	assert.Equal(t, "tok", m.AccessToken())

	require.NoError(t, m.SetTokens("a2", "r2"))
	assert.Equal(t, "a2", m.AccessToken())
	assert.Equal(t, "r2", m.RefreshToken())

	require.NoError(t, m.Clear())
	assert.False(t, m.Session().LoggedIn())
}

func TestFileStore_PlainRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	fs, err := OpenFileStore(path, "")
	require.NoError(t, err)
	assert.False(t, fs.Session().LoggedIn(), "missing file is an empty store")

	require.NoError(t, fs.Save(Session{AccessToken: "a", RefreshToken: "r", User: User{Email: "ada@example.ng"}}))

	again, err := OpenFileStore(path, "")
	require.NoError(t, err)
	assert.Equal(t, "a", again.AccessToken())
	assert.Equal(t, "ada@example.ng", again.Session().User.Email)

	require.NoError(t, again.SetTokens("a2", "r2"))
	require.NoError(t, fs.Reload())
	assert.Equal(t, "a2", fs.AccessToken())
}

func TestFileStore_Encrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	fs, err := OpenFileStore(path, "s3cret")
	require.NoError(t, err)
	require.NoError(t, fs.Save(Session{AccessToken: "very-secret-token", RefreshToken: "r"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "TAXEASE-ENC1:"))
	assert.NotContains(t, string(raw), "very-secret-token")

	again, err := OpenFileStore(path, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "very-secret-token", again.AccessToken())

	_, err = OpenFileStore(path, "")
	assert.ErrorIs(t, err, ErrPassphraseRequired)

	_, err = OpenFileStore(path, "wrong")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestFileStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	fs, err := OpenFileStore(path, "")
	require.NoError(t, err)
	require.NoError(t, fs.Save(Session{AccessToken: "a"}))

	require.NoError(t, fs.Clear())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, fs.Clear(), "clearing twice is fine")
}

func TestFileStore_WatchPicksUpExternalLogin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")

	watched, err := OpenFileStore(path, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan Session, 4)
	done := make(chan error, 1)
	go func() { done <- watched.Watch(ctx, func(s Session) { changed <- s }) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	other, err := OpenFileStore(path, "")
	require.NoError(t, err)
	require.NoError(t, other.Save(Session{AccessToken: "from-other-shell"}))

	select {
	case s := <-changed:
		assert.Equal(t, "from-other-shell", s.AccessToken)
		assert.Equal(t, "from-other-shell", watched.AccessToken())
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the external change")
	}

	cancel()
	require.NoError(t, <-done)
}
