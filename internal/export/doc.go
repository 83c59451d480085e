// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes TaxEase conversations to Markdown, HTML and JSON.
//
// Citations, misconception notices and suggested follow-up questions are
// carried into every format. HTML output highlights fenced code blocks.
//
// # Usage
//
//	exp, err := export.ForFormat("md", export.DefaultOptions())
//	path, err := export.ExportToFile(conv, exp, opts)
package export
