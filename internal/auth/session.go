// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"time"

	"github.com/jeranaias/taxease-tui/internal/api"
)

// User identifies the signed-in account.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Session is a persisted token pair.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	User         User      `json:"user"`
	SavedAt      time.Time `json:"saved_at"`
}

// SessionFromTokens builds a session from a login, signup or refresh response.
func SessionFromTokens(t *api.TokenResponse, now time.Time) Session {
	return Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt(now),
		User: User{
			ID:       t.User.ID,
			Email:    t.User.Email,
			FullName: t.User.FullName,
		},
		SavedAt: now,
	}
}

// LoggedIn reports whether the session holds any credential.
func (s Session) LoggedIn() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}

// Expired reports whether the access token is past its expiry.
// Sessions without a known expiry never report expired.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// DisplayName returns the user's name, falling back to the email.
func (s Session) DisplayName() string {
	if s.User.FullName != "" {
		return s.User.FullName
	}
	return s.User.Email
}

// Store is a credential holder the client can read and update.
type Store interface {
	api.TokenStore
	Session() Session
	Save(Session) error
	Clear() error
}
