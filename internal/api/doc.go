// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the TaxEase AI backend.
//
// The client speaks the backend's JSON contract: chat, conversation
// management, health and the /auth endpoints. Every failure is normalized
// into an *Error carrying one of four kinds (network, validation, server,
// unauthorized) so callers never inspect raw HTTP responses.
//
// # Key Types
//
//   - Client: HTTP client with bearer auth, rate limiting and read retries
//   - ClientConfig: Base URL, timeout, retry and throttle settings
//   - TokenStore: Consumer-supplied holder of access and refresh tokens
//   - ChatResponse: Answer, citations and follow-ups for one question
//   - Error: Normalized failure with Kind, HTTP status and server detail
//
// # Usage
//
//	client := api.NewClientWithConfig(&api.ClientConfig{
//	    BaseURL: "http://localhost:8000/api",
//	    Tokens:  store,
//	})
//	id, err := client.CreateConversation(ctx)
//	resp, err := client.SendMessage(ctx, id, "Is VAT changing?")
//	if api.IsNetwork(err) {
//	    // backend unreachable or timed out
//	}
//
// # Retries
//
// Only GET requests are retried (exponential backoff on network and 5xx
// failures). Writes are sent at most once: a chat message is never
// resubmitted behind the caller's back. A 401 triggers one token refresh
// and a single replay of the request regardless of method, since the
// rejected request was never processed.
package api
