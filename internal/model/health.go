// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// HealthStatus is the client's view of backend readiness.
type HealthStatus int

const (
	// HealthUnknown means no check has completed yet.
	HealthUnknown HealthStatus = iota
	// HealthHealthy means the backend reported status "healthy".
	HealthHealthy
	// HealthDegraded means the backend answered with any other status
	// (for example "initializing" while the vector store loads).
	HealthDegraded
	// HealthUnreachable means the health request itself failed.
	HealthUnreachable
)

// String returns the lowercase name of the status.
func (h HealthStatus) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// HealthStatusFromBackend maps the backend's status string.
// Only the exact value "healthy" counts as healthy.
func HealthStatusFromBackend(status string) HealthStatus {
	if status == "healthy" {
		return HealthHealthy
	}
	return HealthDegraded
}
