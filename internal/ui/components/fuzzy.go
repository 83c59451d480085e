// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jeranaias/taxease-tui/internal/model"
)

// =============================================================================
// FUZZY MATCHING
// =============================================================================

// FuzzyMatch performs fuzzy matching between a query and a target string.
// Returns a score (higher is better) and whether the match succeeded.
//
// Matching rules:
//   - Each character in query must appear in order in target
//   - Consecutive matches get bonus points
//   - Matches at word boundaries get bonus points
//   - Case-insensitive matching
//
// Examples:
//   - "vat" matches "VAT on exports" with high score (start + consecutive)
//   - "pit" matches "Personal income tax" (word boundaries)
//   - "xyz" does not match "Stamp duty"
func FuzzyMatch(query, target string) (score int, matched bool) {
	if query == "" {
		return 0, true
	}

	queryRunes := []rune(strings.ToLower(query))
	targetRunes := []rune(strings.ToLower(target))
	if len(queryRunes) > len(targetRunes) {
		return 0, false
	}

	queryPos := 0
	lastMatchPos := -1

	for targetPos := 0; targetPos < len(targetRunes) && queryPos < len(queryRunes); targetPos++ {
		if targetRunes[targetPos] != queryRunes[queryPos] {
			continue
		}
		matchScore := 1
		if lastMatchPos == targetPos-1 {
			matchScore += 5
		}
		if targetPos == 0 {
			matchScore += 10
		}
		if isWordBoundary(targetRunes, targetPos) {
			matchScore += 7
		}
		score += matchScore
		lastMatchPos = targetPos
		queryPos++
	}

	matched = queryPos == len(queryRunes)

	// Shorter titles are better matches
	if matched {
		score -= len(targetRunes) / 4
	}
	return score, matched
}

// isWordBoundary returns true if pos follows a separator or a digit/letter switch.
func isWordBoundary(runes []rune, pos int) bool {
	if pos == 0 {
		return true
	}
	if pos >= len(runes) {
		return false
	}
	prev := runes[pos-1]
	switch prev {
	case ' ', '/', '-', '_', '(', ',', '.':
		return true
	}
	return unicode.IsDigit(prev) != unicode.IsDigit(runes[pos])
}

// =============================================================================
// CONVERSATION MATCHING
// =============================================================================

// ScoredConversation is a conversation that matched a query.
type ScoredConversation struct {
	Summary model.ConversationSummary
	Score   int
}

// MatchConversations ranks conversations whose display title or id prefix
// matches query, best first. Ties keep the input order.
func MatchConversations(query string, convs []model.ConversationSummary) []ScoredConversation {
	query = strings.TrimSpace(query)
	var matches []ScoredConversation
	for _, c := range convs {
		if query != "" && strings.HasPrefix(c.ID.String(), query) {
			matches = append(matches, ScoredConversation{Summary: c, Score: 1 << 20})
			continue
		}
		if score, ok := FuzzyMatch(query, c.DisplayTitle()); ok {
			matches = append(matches, ScoredConversation{Summary: c, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// HighlightMatch returns the rune positions of target matched by query.
func HighlightMatch(query, target string) (positions []int) {
	if query == "" {
		return nil
	}

	queryRunes := []rune(strings.ToLower(query))
	targetRunes := []rune(strings.ToLower(target))

	queryPos := 0
	for targetPos := 0; targetPos < len(targetRunes) && queryPos < len(queryRunes); targetPos++ {
		if targetRunes[targetPos] == queryRunes[queryPos] {
			positions = append(positions, targetPos)
			queryPos++
		}
	}
	return positions
}
