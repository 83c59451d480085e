// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorKind categorizes client errors for handling.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindNetwork covers timeouts, refused connections, DNS failures and
	// cancelled contexts: the request may not have reached the backend.
	KindNetwork
	// KindValidation is a 4xx rejection; Detail holds the server's message.
	KindValidation
	// KindServer is a 5xx or an unparseable response.
	KindServer
	// KindUnauthorized is a 401 that a token refresh could not fix.
	KindUnauthorized
)

// String returns the lowercase name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Error represents a failed backend call.
type Error struct {
	Kind ErrorKind

	// Op names the client operation, e.g. "send message".
	Op string

	// Status is the HTTP status code, 0 when no response was received.
	Status int

	// Detail is the backend's "detail" message, verbatim.
	Detail string

	Cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Detail != "":
		b.WriteString(e.Detail)
	case e.Status != 0:
		b.WriteString(http.StatusText(e.Status))
	default:
		b.WriteString(e.Kind.String() + " error")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Sentinel errors for argument checks that never reach the network.
var (
	ErrEmptyQuestion  = &Error{Kind: KindValidation, Op: "send message", Detail: "question must not be empty"}
	ErrNoConversation = &Error{Kind: KindValidation, Detail: "conversation id is required"}
	ErrNoRefreshToken = &Error{Kind: KindUnauthorized, Op: "refresh", Detail: "no refresh token available"}
)

// =============================================================================
// CLASSIFICATION
// =============================================================================

// KindOf returns the kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// DetailOf returns the server-provided detail message of err, if any.
func DetailOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

// IsValidation reports whether the backend rejected the request as invalid.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsServer reports whether the backend failed internally.
func IsServer(err error) bool { return KindOf(err) == KindServer }

// IsUnauthorized reports whether the credentials were rejected.
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// =============================================================================
// RESPONSE DECODING
// =============================================================================

// errorBody is the FastAPI error envelope. Detail is either a string or,
// for request validation failures, a list of {loc, msg, type} objects.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationItem struct {
	Msg string `json:"msg"`
}

// parseDetail extracts a human-readable message from an error body.
func parseDetail(data []byte) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}

	var items []validationItem
	if err := json.Unmarshal(body.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// statusError maps a non-2xx response onto an *Error. A 4xx is a
// validation failure only when the body carries a detail; a bare 4xx is a
// server failure.
func statusError(op string, status int, data []byte) *Error {
	e := &Error{Op: op, Status: status, Detail: parseDetail(data)}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case status >= 400 && status < 500 && e.Detail != "":
		e.Kind = KindValidation
	default:
		e.Kind = KindServer
	}
	return e
}

// retryable reports whether a failed read is worth another attempt.
// Client errors never are, whatever their kind.
func retryable(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case KindNetwork:
		return true
	case KindServer:
		return apiErr.Status == 0 || apiErr.Status >= 500
	default:
		return false
	}
}
