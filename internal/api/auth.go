// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
)

// =============================================================================
// AUTH OPERATIONS
// =============================================================================

// Login exchanges email and password for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var resp TokenResponse
	err := c.do(ctx, call{
		op:        "login",
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      LoginRequest{Email: email, Password: password},
		out:       &resp,
		anonymous: true,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Signup creates an account and returns its first token pair.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*TokenResponse, error) {
	var resp TokenResponse
	err := c.do(ctx, call{
		op:        "signup",
		method:    http.MethodPost,
		path:      "/auth/signup",
		body:      req,
		out:       &resp,
		anonymous: true,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh trades a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	var resp TokenResponse
	err := c.do(ctx, call{
		op:        "refresh",
		method:    http.MethodPost,
		path:      "/auth/refresh",
		body:      refreshRequest{RefreshToken: refreshToken},
		out:       &resp,
		anonymous: true,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the refresh token server-side.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrNoRefreshToken
	}
	var resp messageResponse
	return c.do(ctx, call{
		op:     "logout",
		method: http.MethodPost,
		path:   "/auth/logout",
		body:   refreshRequest{RefreshToken: refreshToken},
		out:    &resp,
	})
}

// Me returns the account the current access token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	err := c.do(ctx, call{
		op:     "whoami",
		method: http.MethodGet,
		path:   "/auth/me",
		out:    &user,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
