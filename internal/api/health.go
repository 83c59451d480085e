// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/jeranaias/taxease-tui/internal/model"
)

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckHealth probes GET /health once, without retries or credentials.
//
// A response whose status is exactly "healthy" maps to model.HealthHealthy;
// any other answer is model.HealthDegraded. Transport failures and error
// statuses map to model.HealthUnreachable and are returned as err.
func (c *Client) CheckHealth(ctx context.Context) (model.HealthStatus, *HealthResponse, error) {
	var resp HealthResponse
	err := c.send(ctx, call{
		op:        "health check",
		method:    http.MethodGet,
		path:      "/health",
		out:       &resp,
		anonymous: true,
	}, nil, false)
	if err != nil {
		return model.HealthUnreachable, nil, err
	}
	return model.HealthStatusFromBackend(resp.Status), &resp, nil
}
