// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package health implements the readiness gate that decides whether chat
// input is accepted.
//
// The gate starts in StateChecking, probes the backend once and settles on
// StateHealthy or StateUnreachable. A backend that answers but reports any
// status other than "healthy" (for example "initializing") is treated as
// not ready. The gate never re-probes on its own; Recheck is the manual
// reload path. Config.Retries enables a bounded exponential backoff for the
// initial probe.
package health
