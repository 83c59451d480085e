// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across the taxease packages.
//
// # Key Functions
//
//   - AtomicWriteFile: Crash-safe file writing with fsync
//   - TruncateWidth, PadRight: Display-width aware text fitting
//   - NormalizeInput: NFC normalization and trimming of user input
//
// # Usage
//
//	row := util.PadRight(util.TruncateWidth(title, 28), 28)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
