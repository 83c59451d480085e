// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components holds small building blocks shared by the chat view:
// fuzzy matching of conversation titles and the conversation sidebar.
package components
