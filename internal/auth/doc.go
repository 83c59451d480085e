// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth stores the bearer credentials used to talk to the backend.
//
// Both stores satisfy api.TokenStore, so the transport client reads the
// access token from them and writes refreshed tokens back.
//
// # Key Types
//
//   - Session: Access/refresh token pair plus the signed-in user
//   - MemoryStore: Process-local store, used by tests and --token
//   - FileStore: JSON file at mode 0600, optionally AES-GCM encrypted with a
//     PBKDF2-derived key, watched for logins made from another shell
//
// # Usage
//
//	store, err := auth.OpenFileStore(path, os.Getenv("TAXEASE_CREDENTIALS_KEY"))
//	client := api.NewClientWithConfig(&api.ClientConfig{Tokens: store})
//	go store.Watch(ctx, func(s auth.Session) { log.Info().Msg("credentials changed") })
package auth
