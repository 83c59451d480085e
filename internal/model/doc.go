// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the transport client,
// the session state, the controller and the presentation layers.
//
// # Key Types
//
//   - Message: Single transcript entry with role, text, citations and follow-ups
//   - Citation: Reference into a tax reform bill supporting an answer
//   - ConversationSummary: Server-side conversation listing entry
//   - HealthStatus: Backend readiness (healthy, degraded, unreachable)
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
// Build the messages of one exchange:
//
//	q := model.NewUserMessage("What is the new VAT rate?")
//	a := model.NewAssistantMessage("The rate stays at 7.5%...")
//	a.Sources = []model.Citation{{BillName: "Nigeria Tax Bill", Section: "146", Page: "112"}}
package model
