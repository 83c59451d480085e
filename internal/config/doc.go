// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads, validates and saves taxease configuration.
//
// # File Locations
//
// The configuration directory is $TAXEASE_HOME, or ~/.taxease when unset.
// Within it config.toml is read first, then config.json. Missing files
// leave the built-in defaults in place.
//
// # Environment
//
// A .env file in the working directory is loaded before the overrides
// below are applied. Variables already set in the process win.
//
//   - TAXEASE_API_URL (or VITE_API_URL): api.base_url
//   - TAXEASE_TIMEOUT: api.timeout_secs
//   - TAXEASE_LOG_LEVEL: log.level
//   - TAXEASE_HOME: configuration directory
//
// # Usage
//
//	cfg, err := config.Load()
//	client := api.NewClientWithConfig(&api.ClientConfig{
//	    BaseURL: cfg.API.BaseURL,
//	    Timeout: cfg.API.Timeout(),
//	})
//
// Dot-notation access backs the "taxease config" command:
//
//	v, _ := cfg.Get("api.timeout_secs")
//	_ = cfg.Set("ui.theme", "light")
package config
